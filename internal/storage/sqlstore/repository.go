// Package sqlstore implements storage.Store on SQLite (modernc.org/sqlite)
// and PostgreSQL (lib/pq). Both dialects share the same queries; only the
// placeholder syntax and the schema types differ.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"financas/internal/core"
	"financas/internal/storage"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.Store = (*Repository)(nil)

// NewSQLiteRepository opens (creating if needed) the database file at
// dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(Postgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQL repository ready", "dialect", string(d))
	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) exec(ctx context.Context, q execer, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, r.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an INSERT ... ON CONFLICT DO NOTHING and maps a skipped row
// to storage.ErrConflict.
func (r *Repository) insert(ctx context.Context, kind, id, query string, args ...any) error {
	n, err := r.exec(ctx, r.db, query, args...)
	if err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s already exists: %w", kind, id, storage.ErrConflict)
	}
	return nil
}

// mutate runs an UPDATE or DELETE and maps zero affected rows to
// storage.ErrNotFound.
func (r *Repository) mutate(ctx context.Context, kind, id, query string, args ...any) error {
	n, err := r.exec(ctx, r.db, query, args...)
	if err != nil {
		return fmt.Errorf("write %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

// Categories

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type FROM categories ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT id, name, type FROM categories WHERE id = ?`), id).
		Scan(&c.ID, &c.Name, &c.Type)
	if err != nil {
		return core.Category{}, notFoundOr(err, "category", id)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	return r.insert(ctx, "category", c.ID,
		`INSERT INTO categories (id, name, type) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		c.ID, c.Name, string(c.Type))
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.mutate(ctx, "category", id, `DELETE FROM categories WHERE id = ?`, id)
}

// Transactions

const transactionColumns = `id, type, amount, date, description, category_id, payment_method,
	is_installment, is_recurrent, total_installments, paid_installments, start_date, recurrence_of`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                   core.Transaction
		total, paid         sql.NullInt64
		start               core.Date
		recurrenceOf        sql.NullString
		txType, paymentMeth string
	)
	err := row.Scan(&t.ID, &txType, &t.Amount, &t.Date, &t.Description, &t.CategoryID, &paymentMeth,
		&t.IsInstallment, &t.IsRecurrent, &total, &paid, &start, &recurrenceOf)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	t.PaymentMethod = core.PaymentMethod(paymentMeth)
	t.RecurrenceOf = recurrenceOf.String
	if t.IsInstallment {
		t.Installments = &core.InstallmentDetails{
			TotalInstallments: int(total.Int64),
			PaidInstallments:  int(paid.Int64),
			StartDate:         start,
		}
	}
	return t, nil
}

func transactionArgs(t core.Transaction) []any {
	var total, paid sql.NullInt64
	var start any
	if t.Installments != nil {
		total = sql.NullInt64{Int64: int64(t.Installments.TotalInstallments), Valid: true}
		paid = sql.NullInt64{Int64: int64(t.Installments.PaidInstallments), Valid: true}
		start = t.Installments.StartDate
	}
	recurrenceOf := sql.NullString{String: t.RecurrenceOf, Valid: t.RecurrenceOf != ""}
	return []any{string(t.Type), t.Amount.String(), t.Date, t.Description, t.CategoryID, string(t.PaymentMethod),
		t.IsInstallment, t.IsRecurrent, total, paid, start, recurrenceOf}
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`), id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFoundOr(err, "transaction", id)
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	args := append([]any{t.ID}, transactionArgs(t)...)
	return r.insert(ctx, "transaction", t.ID,
		`INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, args...)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	args := append(transactionArgs(t), t.ID)
	return r.mutate(ctx, "transaction", t.ID,
		`UPDATE transactions SET type = ?, amount = ?, date = ?, description = ?, category_id = ?,
		payment_method = ?, is_installment = ?, is_recurrent = ?, total_installments = ?,
		paid_installments = ?, start_date = ?, recurrence_of = ?
		WHERE id = ?`, args...)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	return r.mutate(ctx, "transaction", id, `DELETE FROM transactions WHERE id = ?`, id)
}

func (r *Repository) CountTransactionsByCategory(ctx context.Context, categoryID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID)
}

// Shopping categories

func (r *Repository) ListShoppingCategories(ctx context.Context) ([]core.ShoppingCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM shopping_categories ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list shopping categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.ShoppingCategory, 0)
	for rows.Next() {
		var c core.ShoppingCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan shopping category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetShoppingCategory(ctx context.Context, id string) (core.ShoppingCategory, error) {
	var c core.ShoppingCategory
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT id, name FROM shopping_categories WHERE id = ?`), id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		return core.ShoppingCategory{}, notFoundOr(err, "shopping category", id)
	}
	return c, nil
}

func (r *Repository) CreateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error {
	return r.insert(ctx, "shopping category", c.ID,
		`INSERT INTO shopping_categories (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name)
}

func (r *Repository) UpdateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error {
	return r.mutate(ctx, "shopping category", c.ID,
		`UPDATE shopping_categories SET name = ? WHERE id = ?`, c.Name, c.ID)
}

func (r *Repository) DeleteShoppingCategory(ctx context.Context, id string) error {
	return r.mutate(ctx, "shopping category", id, `DELETE FROM shopping_categories WHERE id = ?`, id)
}

// Products

func (r *Repository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, category_id, unit FROM products ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]core.Product, 0)
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Unit); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) GetProduct(ctx context.Context, id string) (core.Product, error) {
	var p core.Product
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT id, name, category_id, unit FROM products WHERE id = ?`), id).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.Unit)
	if err != nil {
		return core.Product{}, notFoundOr(err, "product", id)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p core.Product) error {
	return r.insert(ctx, "product", p.ID,
		`INSERT INTO products (id, name, category_id, unit) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.CategoryID, string(p.Unit))
}

func (r *Repository) UpdateProduct(ctx context.Context, p core.Product) error {
	return r.mutate(ctx, "product", p.ID,
		`UPDATE products SET name = ?, category_id = ?, unit = ? WHERE id = ?`,
		p.Name, p.CategoryID, string(p.Unit), p.ID)
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	return r.mutate(ctx, "product", id, `DELETE FROM products WHERE id = ?`, id)
}

func (r *Repository) CountProductsByCategory(ctx context.Context, categoryID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID)
}
