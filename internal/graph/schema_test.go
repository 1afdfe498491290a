package graph

import (
	"context"
	"database/sql"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/imrishuroy/go-crm-graph/internal/crm"
	"github.com/imrishuroy/go-crm-graph/internal/validation"
)

func newTestSchema(t *testing.T) (graphql.Schema, *crm.Service) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := crm.NewStore(db, crm.DialectSQLite)
	require.NoError(t, store.Migrate(context.Background()))
	svc := crm.NewService(store)

	schema, err := NewSchema(svc)
	require.NoError(t, err)
	return schema, svc
}

func exec(t *testing.T, schema graphql.Schema, query string, vars map[string]interface{}) *graphql.Result {
	t.Helper()
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        context.Background(),
	})
}

func data(t *testing.T, res *graphql.Result, field string) map[string]interface{} {
	t.Helper()
	require.Empty(t, res.Errors, "unexpected errors: %v", res.Errors)
	root, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	out, ok := root[field].(map[string]interface{})
	require.True(t, ok, "missing field %q in %v", field, root)
	return out
}

func TestCreateCustomerMutation(t *testing.T) {
	schema, _ := newTestSchema(t)

	res := exec(t, schema, `mutation {
		createCustomer(name: "Alice", email: "alice@example.com", phone: "+1234567890") {
			customer { id name email phone }
			message
		}
	}`, nil)

	payload := data(t, res, "createCustomer")
	assert.Equal(t, "Customer created successfully.", payload["message"])
	customer := payload["customer"].(map[string]interface{})
	assert.Equal(t, "Alice", customer["name"])
	assert.Equal(t, "alice@example.com", customer["email"])
	assert.NotEmpty(t, customer["id"])
}

func TestCreateCustomerMutation_DuplicateEmail(t *testing.T) {
	schema, _ := newTestSchema(t)

	query := `mutation { createCustomer(name: "Alice", email: "alice@example.com") { message } }`
	res := exec(t, schema, query, nil)
	require.Empty(t, res.Errors)

	res = exec(t, schema, query, nil)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "Email already exists", res.Errors[0].Message)
}

func TestBulkCreateCustomersMutation(t *testing.T) {
	schema, _ := newTestSchema(t)

	res := exec(t, schema, `mutation($customers: [BulkCustomerInput!]!) {
		bulkCreateCustomers(customers: $customers) {
			created { name email }
			errors
		}
	}`, map[string]interface{}{
		"customers": []interface{}{
			map[string]interface{}{"name": "A", "email": "a@x.com"},
			map[string]interface{}{"name": "B", "email": "a@x.com"},
		},
	})

	payload := data(t, res, "bulkCreateCustomers")
	created := payload["created"].([]interface{})
	require.Len(t, created, 1)
	assert.Equal(t, "A", created[0].(map[string]interface{})["name"])

	errs := payload["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "Duplicate email: a@x.com", errs[0])
}

func TestCreateProductMutation_InvalidPrice(t *testing.T) {
	schema, _ := newTestSchema(t)

	res := exec(t, schema, `mutation { createProduct(name: "Widget", price: -1) { message } }`, nil)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "Price must be positive", res.Errors[0].Message)
}

func TestCreateOrderMutation(t *testing.T) {
	schema, svc := newTestSchema(t)
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, validation.CreateCustomerInput{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	p1, err := svc.CreateProduct(ctx, validation.CreateProductInput{Name: "Widget", Price: 10})
	require.NoError(t, err)
	p2, err := svc.CreateProduct(ctx, validation.CreateProductInput{Name: "Gadget", Price: 5.5})
	require.NoError(t, err)

	res := exec(t, schema, `mutation($customerId: ID!, $productIds: [ID!]!) {
		createOrder(customerId: $customerId, productIds: $productIds) {
			order {
				totalAmount
				customer { name }
				products { name }
			}
			message
		}
	}`, map[string]interface{}{
		"customerId": c.ID,
		"productIds": []interface{}{p1.ID, p2.ID},
	})

	payload := data(t, res, "createOrder")
	assert.Equal(t, "Order created successfully.", payload["message"])
	order := payload["order"].(map[string]interface{})
	assert.Equal(t, 15.5, order["totalAmount"])
	assert.Equal(t, "Alice", order["customer"].(map[string]interface{})["name"])
	assert.Len(t, order["products"].([]interface{}), 2)
}

func TestCreateOrderMutation_InvalidProductIDs(t *testing.T) {
	schema, svc := newTestSchema(t)
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, validation.CreateCustomerInput{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	res := exec(t, schema, `mutation($customerId: ID!, $productIds: [ID!]!) {
		createOrder(customerId: $customerId, productIds: $productIds) { message }
	}`, map[string]interface{}{
		"customerId": c.ID,
		"productIds": []interface{}{"ghost"},
	})
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "One or more invalid product IDs", res.Errors[0].Message)
}

func TestQueries(t *testing.T) {
	schema, svc := newTestSchema(t)
	ctx := context.Background()

	alice, err := svc.CreateCustomer(ctx, validation.CreateCustomerInput{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, validation.CreateCustomerInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	res := exec(t, schema, `query($id: ID!) { customer(id: $id) { name } }`, map[string]interface{}{"id": alice.ID})
	payload := data(t, res, "customer")
	assert.Equal(t, "Alice", payload["name"])

	res = exec(t, schema, `{ customerByName(name: "Bob") { email } }`, nil)
	payload = data(t, res, "customerByName")
	assert.Equal(t, "bob@example.com", payload["email"])

	res = exec(t, schema, `{ allCustomers(filter: {name: "Alice"}) { email } }`, nil)
	require.Empty(t, res.Errors)
	list := res.Data.(map[string]interface{})["allCustomers"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "alice@example.com", list[0].(map[string]interface{})["email"])

	res = exec(t, schema, `{ allCustomers(limit: 1, offset: 1) { name } }`, nil)
	require.Empty(t, res.Errors)
	list = res.Data.(map[string]interface{})["allCustomers"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].(map[string]interface{})["name"])

	res = exec(t, schema, `{ customer(id: "ghost") { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Nil(t, res.Data.(map[string]interface{})["customer"])
}
