package crm

import "time"

// Customer is a persisted customer record. Customers are immutable after
// creation in this core; deletion happens externally.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a persisted product record.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order references one customer and one or more products. TotalAmount is
// denormalized: it is the sum of the referenced products' prices at
// creation time and is never recomputed.
type Order struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	Products    []Product `json:"products"`
	OrderDate   time.Time `json:"orderDate"`
	TotalAmount float64   `json:"totalAmount"`
}

// CustomerFilter narrows a customer listing. Zero-value fields are ignored;
// set fields are exact-match predicates.
type CustomerFilter struct {
	Name  string
	Email string
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Name  string
	Stock *int
}

// OrderFilter narrows an order listing by referenced customer or product.
type OrderFilter struct {
	CustomerID string
	ProductID  string
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
