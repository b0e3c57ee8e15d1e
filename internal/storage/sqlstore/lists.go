package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage"
)

const listColumns = `id, name, created_at, status, completed_at, total_amount`

func scanList(row rowScanner) (core.ShoppingList, error) {
	var (
		l         core.ShoppingList
		status    string
		completed core.Date
		total     decimal.NullDecimal
	)
	if err := row.Scan(&l.ID, &l.Name, &l.CreatedAt, &status, &completed, &total); err != nil {
		return core.ShoppingList{}, err
	}
	l.Status = core.ListStatus(status)
	if !completed.IsEmpty() {
		l.CompletedAt = &completed
	}
	if total.Valid {
		l.TotalAmount = &total.Decimal
	}
	l.Items = []core.CartItem{}
	return l, nil
}

func listArgs(l core.ShoppingList) []any {
	var completed any
	if l.CompletedAt != nil {
		completed = *l.CompletedAt
	}
	total := decimal.NullDecimal{}
	if l.TotalAmount != nil {
		total = decimal.NewNullDecimal(*l.TotalAmount)
	}
	return []any{l.Name, l.CreatedAt, string(l.Status), completed, total}
}

func (r *Repository) ListShoppingLists(ctx context.Context) ([]core.ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+listColumns+` FROM shopping_lists ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	lists := make([]core.ShoppingList, 0)
	index := make(map[string]int)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		index[l.ID] = len(lists)
		lists = append(lists, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}

	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM shopping_list_items ORDER BY list_id, position`)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if i, ok := index[it.listID]; ok {
			lists[i].Items = append(lists[i].Items, it.CartItem)
		}
	}
	return lists, nil
}

func (r *Repository) GetShoppingList(ctx context.Context, id string) (core.ShoppingList, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+listColumns+` FROM shopping_lists WHERE id = ?`), id)
	l, err := scanList(row)
	if err != nil {
		return core.ShoppingList{}, notFoundOr(err, "shopping list", id)
	}

	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM shopping_list_items WHERE list_id = ? ORDER BY position`, id)
	if err != nil {
		return core.ShoppingList{}, err
	}
	for _, it := range items {
		l.Items = append(l.Items, it.CartItem)
	}
	return l, nil
}

func (r *Repository) CreateShoppingList(ctx context.Context, l core.ShoppingList) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{l.ID}, listArgs(l)...)
		n, err := r.exec(ctx, tx, `INSERT INTO shopping_lists (`+listColumns+`) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`, args...)
		if err != nil {
			return fmt.Errorf("create shopping list: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("shopping list %s already exists: %w", l.ID, storage.ErrConflict)
		}
		return r.insertItems(ctx, tx, l)
	})
}

func (r *Repository) SaveShoppingList(ctx context.Context, l core.ShoppingList) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		args := append(listArgs(l), l.ID)
		n, err := r.exec(ctx, tx, `UPDATE shopping_lists SET name = ?, created_at = ?, status = ?,
			completed_at = ?, total_amount = ? WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("update shopping list %s: %w", l.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("shopping list %s: %w", l.ID, storage.ErrNotFound)
		}
		if _, err := r.exec(ctx, tx, `DELETE FROM shopping_list_items WHERE list_id = ?`, l.ID); err != nil {
			return fmt.Errorf("clear items of %s: %w", l.ID, err)
		}
		return r.insertItems(ctx, tx, l)
	})
}

func (r *Repository) DeleteShoppingList(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.exec(ctx, tx, `DELETE FROM shopping_list_items WHERE list_id = ?`, id); err != nil {
			return fmt.Errorf("delete items of %s: %w", id, err)
		}
		n, err := r.exec(ctx, tx, `DELETE FROM shopping_lists WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete shopping list %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("shopping list %s: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// Items

const itemColumns = `list_id, id, product_id, name, quantity, price, checked, category_id, unit`

type storedItem struct {
	core.CartItem
	listID string
}

func (r *Repository) queryItems(ctx context.Context, query string, args ...any) ([]storedItem, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []storedItem
	for rows.Next() {
		var it storedItem
		if err := rows.Scan(&it.listID, &it.ID, &it.ProductID, &it.Name, &it.Quantity, &it.Price,
			&it.Checked, &it.CategoryID, &it.Unit); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) insertItems(ctx context.Context, tx *sql.Tx, l core.ShoppingList) error {
	for pos, it := range l.Items {
		_, err := r.exec(ctx, tx, `INSERT INTO shopping_list_items
			(list_id, id, position, product_id, name, quantity, price, checked, category_id, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, it.ID, pos, it.ProductID, it.Name, it.Quantity.String(), it.Price.String(),
			it.Checked, it.CategoryID, string(it.Unit))
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
