package crm

import "errors"

// Mutation failure kinds. The messages are surfaced verbatim to API
// callers, which is why they read as user-facing sentences.
var (
	ErrDuplicateEmail   = errors.New("Email already exists")
	ErrInvalidPhone     = errors.New("Invalid phone format")
	ErrInvalidPrice     = errors.New("Price must be positive")
	ErrInvalidStock     = errors.New("Stock cannot be negative")
	ErrInvalidCustomer  = errors.New("Invalid customer ID")
	ErrEmptyProductList = errors.New("At least one product must be selected")
	ErrInvalidProductID = errors.New("One or more invalid product IDs")
	ErrMissingField     = errors.New("Missing required field")
)
