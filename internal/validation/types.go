package validation

import "time"

// CreateCustomerInput is the payload for the createCustomer mutation.
type CreateCustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone,omitempty" validate:"omitempty,phone"` // optional, must match phone pattern when set
}

// BulkCustomerInput is a single loosely structured entry of the
// bulkCreateCustomers mutation. Every field is optional at the boundary;
// missing name or email is reported per entry, not as a call failure.
type BulkCustomerInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// CreateProductInput is the payload for the createProduct mutation.
type CreateProductInput struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gt=0"`
	Stock *int    `json:"stock,omitempty" validate:"omitempty,gte=0"` // defaults to 0 when nil
}

// CreateOrderInput is the payload for the createOrder mutation. The
// product list is not validated here: an empty list is rejected by the
// service only after the customer reference resolves, so the customer
// error wins when both are wrong.
type CreateOrderInput struct {
	CustomerID string     `json:"customerId" validate:"required"`
	ProductIDs []string   `json:"productIds"`
	OrderDate  *time.Time `json:"orderDate,omitempty"` // defaults to now when nil
}
