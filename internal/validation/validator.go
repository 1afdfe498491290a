package validation

import (
	"regexp"

	validatorv10 "github.com/go-playground/validator/v10"
)

// phonePattern accepts an optional leading +, then a digit, then at least
// seven further digits or hyphens.
var phonePattern = regexp.MustCompile(`^\+?\d[\d\-]{7,}$`)

// ValidPhone reports whether phone is acceptable. An empty phone is valid
// because the field is optional everywhere it appears.
func ValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// New returns a configured validator with the custom `phone` tag
// registered for use on phone fields.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	_ = v.RegisterValidation("phone", func(fl validatorv10.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})

	return v
}
