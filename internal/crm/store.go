package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Dialect identifies the SQL flavor the store speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// execer is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the same store methods run standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store encapsulates all relational access for customers, products and
// orders. Queries are written with ? placeholders and rewritten for
// Postgres at call time.
type Store struct {
	db      *sql.DB
	runner  execer
	dialect Dialect
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, runner: db, dialect: dialect}
}

// WithTx runs fn with a transaction-scoped copy of the store. A non-nil
// error from fn rolls the transaction back and is returned unchanged;
// otherwise the transaction commits.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, runner: tx, dialect: s.dialect}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Migrate creates the schema if it does not exist. The unique constraint
// on customers.email is the final arbiter for duplicate emails; the
// application-level existence check is advisory only.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			order_date TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_products (
			order_id TEXT NOT NULL REFERENCES orders(id),
			product_id TEXT NOT NULL REFERENCES products(id),
			PRIMARY KEY (order_id, product_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.runner.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is a unique-constraint failure
// from either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// InsertCustomer persists c. A unique-constraint failure on email is
// returned as ErrDuplicateEmail.
func (s *Store) InsertCustomer(ctx context.Context, c Customer) error {
	query := s.rebind(`INSERT INTO customers (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := s.runner.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, formatTime(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetCustomer fetches a customer by id. Returns (nil, nil) if not found.
func (s *Store) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	query := s.rebind(`SELECT id, name, email, phone, created_at FROM customers WHERE id = ?`)
	return s.scanCustomer(s.runner.QueryRowContext(ctx, query, id))
}

// GetCustomerByName fetches a customer by exact name. Returns (nil, nil)
// if no customer matches.
func (s *Store) GetCustomerByName(ctx context.Context, name string) (*Customer, error) {
	query := s.rebind(`SELECT id, name, email, phone, created_at FROM customers WHERE name = ? LIMIT 1`)
	return s.scanCustomer(s.runner.QueryRowContext(ctx, query, name))
}

func (s *Store) scanCustomer(row *sql.Row) (*Customer, error) {
	var c Customer
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// EmailExists reports whether any customer already uses email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	query := s.rebind(`SELECT COUNT(1) FROM customers WHERE email = ?`)
	var n int
	if err := s.runner.QueryRowContext(ctx, query, email).Scan(&n); err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return n > 0, nil
}

// ListCustomers returns customers matching f, windowed by p, ordered by
// creation time then id for a stable listing.
func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter, p Page) ([]Customer, error) {
	p = p.normalize()
	query := `SELECT id, name, email, phone, created_at FROM customers`
	var conds []string
	var args []any
	if f.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, f.Name)
	}
	if f.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, f.Email)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := s.runner.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Customer
	for rows.Next() {
		var c Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

// InsertProduct persists p.
func (s *Store) InsertProduct(ctx context.Context, p Product) error {
	query := s.rebind(`INSERT INTO products (id, name, price, stock, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.runner.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Stock, formatTime(p.CreatedAt)); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := s.rebind(`SELECT id, name, price, stock, created_at FROM products WHERE id = ?`)
	var p Product
	var createdAt string
	err := s.runner.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductsByIDs resolves ids to products. Missing ids are simply
// absent from the result; callers compare lengths to detect them.
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	query := s.rebind(`SELECT id, name, price, stock, created_at FROM products WHERE id IN (` + placeholders + `) ORDER BY created_at, id`)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.runner.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanProducts(rows)
}

// ListProducts returns products matching f, windowed by p.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter, p Page) ([]Product, error) {
	p = p.normalize()
	query := `SELECT id, name, price, stock, created_at FROM products`
	var conds []string
	var args []any
	if f.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, f.Name)
	}
	if f.Stock != nil {
		conds = append(conds, "stock = ?")
		args = append(args, *f.Stock)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := s.runner.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &createdAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		var err error
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return out, nil
}

// InsertOrder persists the order row and its product references on the
// store's current runner. Run inside WithTx so that no partial order can
// survive a failure between the two inserts.
func (s *Store) InsertOrder(ctx context.Context, o Order) error {
	query := s.rebind(`INSERT INTO orders (id, customer_id, order_date, total_amount) VALUES (?, ?, ?, ?)`)
	if _, err := s.runner.ExecContext(ctx, query, o.ID, o.CustomerID, formatTime(o.OrderDate), o.TotalAmount); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	link := s.rebind(`INSERT INTO order_products (order_id, product_id) VALUES (?, ?)`)
	for _, p := range o.Products {
		if _, err := s.runner.ExecContext(ctx, link, o.ID, p.ID); err != nil {
			return fmt.Errorf("insert order product: %w", err)
		}
	}
	return nil
}

// GetOrder fetches an order with its products loaded. Returns (nil, nil)
// if not found.
func (s *Store) GetOrder(ctx context.Context, id string) (*Order, error) {
	query := s.rebind(`SELECT id, customer_id, order_date, total_amount FROM orders WHERE id = ?`)
	var o Order
	var orderDate string
	err := s.runner.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.CustomerID, &orderDate, &o.TotalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if o.OrderDate, err = parseTime(orderDate); err != nil {
		return nil, err
	}
	if o.Products, err = s.orderProducts(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns orders matching f, windowed by p, products loaded.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter, p Page) ([]Order, error) {
	p = p.normalize()
	query := `SELECT o.id, o.customer_id, o.order_date, o.total_amount FROM orders o`
	var conds []string
	var args []any
	if f.ProductID != "" {
		query += ` JOIN order_products op ON op.order_id = o.id`
		conds = append(conds, "op.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.CustomerID != "" {
		conds = append(conds, "o.customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY o.order_date, o.id LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := s.runner.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Order
	for rows.Next() {
		var o Order
		var orderDate string
		if err := rows.Scan(&o.ID, &o.CustomerID, &orderDate, &o.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.OrderDate, err = parseTime(orderDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for i := range out {
		if out[i].Products, err = s.orderProducts(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) orderProducts(ctx context.Context, orderID string) ([]Product, error) {
	query := s.rebind(`SELECT p.id, p.name, p.price, p.stock, p.created_at
		FROM products p JOIN order_products op ON op.product_id = p.id
		WHERE op.order_id = ? ORDER BY p.created_at, p.id`)
	rows, err := s.runner.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("order products: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanProducts(rows)
}
