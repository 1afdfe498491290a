// Package graph exposes the CRM service as a GraphQL schema with
// runtime-constructed types.
package graph

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/imrishuroy/go-crm-graph/internal/crm"
	"github.com/imrishuroy/go-crm-graph/internal/validation"
)

// Confirmation messages returned alongside mutation results.
const (
	msgCustomerCreated = "Customer created successfully."
	msgProductCreated  = "Product created successfully."
	msgOrderCreated    = "Order created successfully."
)

// Resolver holds the service all fields resolve against.
type Resolver struct {
	svc *crm.Service
}

// NewResolver creates a resolver over svc.
func NewResolver(svc *crm.Service) *Resolver {
	return &Resolver{svc: svc}
}

func (r *Resolver) resolveCustomer(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.Customer(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return c, nil
}

func (r *Resolver) resolveCustomerByName(p graphql.ResolveParams) (interface{}, error) {
	c, err := r.svc.CustomerByName(p.Context, stringArg(p.Args, "name"))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return c, nil
}

func (r *Resolver) resolveAllCustomers(p graphql.ResolveParams) (interface{}, error) {
	var f crm.CustomerFilter
	if m, ok := p.Args["filter"].(map[string]interface{}); ok {
		f.Name = stringArg(m, "name")
		f.Email = stringArg(m, "email")
	}
	return r.svc.Customers(p.Context, f, pageArg(p.Args))
}

func (r *Resolver) resolveProduct(p graphql.ResolveParams) (interface{}, error) {
	prod, err := r.svc.Product(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	if prod == nil {
		return nil, nil
	}
	return prod, nil
}

func (r *Resolver) resolveAllProducts(p graphql.ResolveParams) (interface{}, error) {
	var f crm.ProductFilter
	if m, ok := p.Args["filter"].(map[string]interface{}); ok {
		f.Name = stringArg(m, "name")
		if stock, ok := m["stock"].(int); ok {
			f.Stock = &stock
		}
	}
	return r.svc.Products(p.Context, f, pageArg(p.Args))
}

func (r *Resolver) resolveOrder(p graphql.ResolveParams) (interface{}, error) {
	o, err := r.svc.Order(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	return o, nil
}

func (r *Resolver) resolveAllOrders(p graphql.ResolveParams) (interface{}, error) {
	var f crm.OrderFilter
	if m, ok := p.Args["filter"].(map[string]interface{}); ok {
		f.CustomerID = stringArg(m, "customerId")
		f.ProductID = stringArg(m, "productId")
	}
	return r.svc.Orders(p.Context, f, pageArg(p.Args))
}

// resolveOrderCustomer loads the customer referenced by the order the
// field is selected on.
func (r *Resolver) resolveOrderCustomer(p graphql.ResolveParams) (interface{}, error) {
	var customerID string
	switch src := p.Source.(type) {
	case crm.Order:
		customerID = src.CustomerID
	case *crm.Order:
		customerID = src.CustomerID
	default:
		return nil, nil
	}
	c, err := r.svc.Customer(p.Context, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return c, nil
}

func (r *Resolver) resolveCreateCustomer(p graphql.ResolveParams) (interface{}, error) {
	in := validation.CreateCustomerInput{
		Name:  stringArg(p.Args, "name"),
		Email: stringArg(p.Args, "email"),
		Phone: stringArg(p.Args, "phone"),
	}
	c, err := r.svc.CreateCustomer(p.Context, in)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"customer": c, "message": msgCustomerCreated}, nil
}

func (r *Resolver) resolveBulkCreateCustomers(p graphql.ResolveParams) (interface{}, error) {
	raw, _ := p.Args["customers"].([]interface{})
	entries := make([]validation.BulkCustomerInput, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]interface{})
		entries = append(entries, validation.BulkCustomerInput{
			Name:  optStringArg(m, "name"),
			Email: optStringArg(m, "email"),
			Phone: optStringArg(m, "phone"),
		})
	}
	created, errs, err := r.svc.BulkCreateCustomers(p.Context, entries)
	if err != nil {
		return nil, err
	}
	if errs == nil {
		errs = []string{}
	}
	if created == nil {
		created = []crm.Customer{}
	}
	return map[string]interface{}{"created": created, "errors": errs}, nil
}

func (r *Resolver) resolveCreateProduct(p graphql.ResolveParams) (interface{}, error) {
	in := validation.CreateProductInput{
		Name:  stringArg(p.Args, "name"),
		Price: floatArg(p.Args, "price"),
	}
	if stock, ok := p.Args["stock"].(int); ok {
		in.Stock = &stock
	}
	prod, err := r.svc.CreateProduct(p.Context, in)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"product": prod, "message": msgProductCreated}, nil
}

func (r *Resolver) resolveCreateOrder(p graphql.ResolveParams) (interface{}, error) {
	in := validation.CreateOrderInput{
		CustomerID: stringArg(p.Args, "customerId"),
		ProductIDs: stringListArg(p.Args, "productIds"),
	}
	if t, ok := p.Args["orderDate"].(time.Time); ok {
		in.OrderDate = &t
	}
	o, err := r.svc.CreateOrder(p.Context, in)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"order": o, "message": msgOrderCreated}, nil
}

// Argument coercion helpers. graphql-go delivers coerced scalars as
// interface{} keyed by argument name; absent optionals are simply missing
// from the map.

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func optStringArg(args map[string]interface{}, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

func floatArg(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func stringListArg(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func pageArg(args map[string]interface{}) crm.Page {
	var p crm.Page
	if v, ok := args["limit"].(int); ok {
		p.Limit = v
	}
	if v, ok := args["offset"].(int); ok {
		p.Offset = v
	}
	return p
}
