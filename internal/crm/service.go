package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-crm-graph/internal/validation"
)

// Service orchestrates validation and repository calls for all mutations
// and queries. One Service handles one request at a time per call; it
// keeps no cross-request state beyond the store.
type Service struct {
	store    *Store
	validate *validatorv10.Validate
	newID    func() string
	nowFunc  func() time.Time
}

// NewService creates a Service over store.
func NewService(store *Store) *Service {
	return &Service{
		store:    store,
		validate: validation.New(),
		newID:    uuid.NewString,
		nowFunc:  time.Now,
	}
}

// mapValidationError translates validator failures into the mutation
// error kinds so callers see the canonical messages.
func mapValidationError(err error) error {
	var verrs validatorv10.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "phone":
			return ErrInvalidPhone
		case "gt":
			if fe.Field() == "Price" {
				return ErrInvalidPrice
			}
		case "gte":
			if fe.Field() == "Stock" {
				return ErrInvalidStock
			}
		case "required":
			return fmt.Errorf("%w: %s", ErrMissingField, fe.Field())
		}
	}
	return err
}

// CreateCustomer validates in and persists a new customer. The email
// existence check is advisory; the unique constraint on the store is the
// final arbiter, and a constraint violation surfaces as the same
// ErrDuplicateEmail.
func (s *Service) CreateCustomer(ctx context.Context, in validation.CreateCustomerInput) (*Customer, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, mapValidationError(err)
	}

	exists, err := s.store.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	c := Customer{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: s.nowFunc().UTC(),
	}
	if err := s.store.InsertCustomer(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// BulkCreateCustomers processes entries in input order inside one
// transaction. Business-rule failures (missing field, duplicate email,
// bad phone) are collected per entry and never abort the batch; an
// infrastructure failure rolls the whole batch back and fails the call.
// Creation happens immediately, so a later entry reusing an earlier
// entry's email collides inside the batch.
func (s *Service) BulkCreateCustomers(ctx context.Context, entries []validation.BulkCustomerInput) ([]Customer, []string, error) {
	var created []Customer
	var errs []string

	err := s.store.WithTx(ctx, func(tx *Store) error {
		for i, e := range entries {
			name := deref(e.Name)
			email := deref(e.Email)
			phone := deref(e.Phone)

			if name == "" || email == "" {
				errs = append(errs, fmt.Sprintf("Missing required fields for entry %d: name=%q email=%q", i, name, email))
				continue
			}
			exists, err := tx.EmailExists(ctx, email)
			if err != nil {
				return err
			}
			if exists {
				errs = append(errs, "Duplicate email: "+email)
				continue
			}
			if !validation.ValidPhone(phone) {
				errs = append(errs, "Invalid phone format for: "+phone)
				continue
			}

			c := Customer{
				ID:        s.newID(),
				Name:      name,
				Email:     email,
				Phone:     phone,
				CreatedAt: s.nowFunc().UTC(),
			}
			if err := tx.InsertCustomer(ctx, c); err != nil {
				if errors.Is(err, ErrDuplicateEmail) {
					// Lost a race with a concurrent writer; report it
					// like any other duplicate instead of aborting.
					errs = append(errs, "Duplicate email: "+email)
					continue
				}
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("bulk create customers: %w", err)
	}
	return created, errs, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CreateProduct validates in and persists a new product. Stock defaults
// to 0 when omitted.
func (s *Service) CreateProduct(ctx context.Context, in validation.CreateProductInput) (*Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, mapValidationError(err)
	}

	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	p := Product{
		ID:        s.newID(),
		Name:      in.Name,
		Price:     in.Price,
		Stock:     stock,
		CreatedAt: s.nowFunc().UTC(),
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateOrder resolves the referenced customer and products, computes the
// denormalized total, and persists the order atomically. Any failure
// before the final write leaves no persisted order.
func (s *Service) CreateOrder(ctx context.Context, in validation.CreateOrderInput) (*Order, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, mapValidationError(err)
	}

	customer, err := s.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrInvalidCustomer
	}

	if len(in.ProductIDs) == 0 {
		return nil, ErrEmptyProductList
	}
	products, err := s.store.GetProductsByIDs(ctx, in.ProductIDs)
	if err != nil {
		return nil, err
	}
	// A count mismatch means some id did not resolve (or was passed
	// twice); either way no partial order is created.
	if len(products) != len(in.ProductIDs) {
		return nil, ErrInvalidProductID
	}

	orderDate := s.nowFunc().UTC()
	if in.OrderDate != nil {
		orderDate = in.OrderDate.UTC()
	}

	var total float64
	for _, p := range products {
		total += p.Price
	}

	o := Order{
		ID:          s.newID(),
		CustomerID:  customer.ID,
		Products:    products,
		OrderDate:   orderDate,
		TotalAmount: total,
	}
	err = s.store.WithTx(ctx, func(tx *Store) error {
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Customer fetches a customer by id; (nil, nil) when absent.
func (s *Service) Customer(ctx context.Context, id string) (*Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

// CustomerByName fetches a customer by exact name; (nil, nil) when absent.
func (s *Service) CustomerByName(ctx context.Context, name string) (*Customer, error) {
	return s.store.GetCustomerByName(ctx, name)
}

// Customers lists customers matching f.
func (s *Service) Customers(ctx context.Context, f CustomerFilter, p Page) ([]Customer, error) {
	return s.store.ListCustomers(ctx, f, p)
}

// Product fetches a product by id; (nil, nil) when absent.
func (s *Service) Product(ctx context.Context, id string) (*Product, error) {
	return s.store.GetProduct(ctx, id)
}

// Products lists products matching f.
func (s *Service) Products(ctx context.Context, f ProductFilter, p Page) ([]Product, error) {
	return s.store.ListProducts(ctx, f, p)
}

// Order fetches an order by id; (nil, nil) when absent.
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

// Orders lists orders matching f.
func (s *Service) Orders(ctx context.Context, f OrderFilter, p Page) ([]Order, error) {
	return s.store.ListOrders(ctx, f, p)
}
