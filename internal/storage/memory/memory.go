// Package memory is an in-process Store guarded by a single mutex.
// Every read returns copies, so callers can never mutate stored state.
package memory

import (
	"context"
	"fmt"
	"sync"

	"financas/internal/core"
	"financas/internal/storage"
)

type Store struct {
	mu           sync.RWMutex
	categories   []core.Category
	transactions []core.Transaction
	shopCats     []core.ShoppingCategory
	products     []core.Product
	lists        []core.ShoppingList
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewSeeded returns a store filled with the data set found in dir, or the
// built-in demo data when dir has none.
func NewSeeded(ctx context.Context, dir string) (*Store, error) {
	ds, err := storage.LoadSeed(dir)
	if err != nil {
		return nil, err
	}
	s := New()
	if err := ds.Apply(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Categories

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, notFound("category", id)
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.ID == c.ID {
			return conflict("category", c.ID)
		}
	}
	s.categories = append(s.categories, c)
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return notFound("category", id)
}

// Transactions

func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = copyTransaction(t)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.transactionIndex(id); i >= 0 {
		return copyTransaction(s.transactions[i]), nil
	}
	return core.Transaction{}, notFound("transaction", id)
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transactionIndex(t.ID) >= 0 {
		return conflict("transaction", t.ID)
	}
	s.transactions = append(s.transactions, copyTransaction(t))
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(t.ID)
	if i < 0 {
		return notFound("transaction", t.ID)
	}
	s.transactions[i] = copyTransaction(t)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(id)
	if i < 0 {
		return notFound("transaction", id)
	}
	s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
	return nil
}

func (s *Store) CountTransactionsByCategory(_ context.Context, categoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s *Store) transactionIndex(id string) int {
	for i, t := range s.transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Shopping categories

func (s *Store) ListShoppingCategories(context.Context) ([]core.ShoppingCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ShoppingCategory(nil), s.shopCats...), nil
}

func (s *Store) GetShoppingCategory(_ context.Context, id string) (core.ShoppingCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.shopCats {
		if c.ID == id {
			return c, nil
		}
	}
	return core.ShoppingCategory{}, notFound("shopping category", id)
}

func (s *Store) CreateShoppingCategory(_ context.Context, c core.ShoppingCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.shopCats {
		if existing.ID == c.ID {
			return conflict("shopping category", c.ID)
		}
	}
	s.shopCats = append(s.shopCats, c)
	return nil
}

func (s *Store) UpdateShoppingCategory(_ context.Context, c core.ShoppingCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shopCats {
		if s.shopCats[i].ID == c.ID {
			s.shopCats[i] = c
			return nil
		}
	}
	return notFound("shopping category", c.ID)
}

func (s *Store) DeleteShoppingCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.shopCats {
		if c.ID == id {
			s.shopCats = append(s.shopCats[:i], s.shopCats[i+1:]...)
			return nil
		}
	}
	return notFound("shopping category", id)
}

// Products

func (s *Store) ListProducts(context.Context) ([]core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Product(nil), s.products...), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Product{}, notFound("product", id)
}

func (s *Store) CreateProduct(_ context.Context, p core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.ID == p.ID {
			return conflict("product", p.ID)
		}
	}
	s.products = append(s.products, p)
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return nil
		}
	}
	return notFound("product", p.ID)
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return notFound("product", id)
}

func (s *Store) CountProductsByCategory(_ context.Context, categoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// Shopping lists

func (s *Store) ListShoppingLists(context.Context) ([]core.ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ShoppingList, len(s.lists))
	for i, l := range s.lists {
		out[i] = l.Clone()
	}
	return out, nil
}

func (s *Store) GetShoppingList(_ context.Context, id string) (core.ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.listIndex(id); i >= 0 {
		return s.lists[i].Clone(), nil
	}
	return core.ShoppingList{}, notFound("shopping list", id)
}

func (s *Store) CreateShoppingList(_ context.Context, l core.ShoppingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listIndex(l.ID) >= 0 {
		return conflict("shopping list", l.ID)
	}
	s.lists = append(s.lists, l.Clone())
	return nil
}

func (s *Store) SaveShoppingList(_ context.Context, l core.ShoppingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.listIndex(l.ID)
	if i < 0 {
		return notFound("shopping list", l.ID)
	}
	s.lists[i] = l.Clone()
	return nil
}

func (s *Store) DeleteShoppingList(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.listIndex(id)
	if i < 0 {
		return notFound("shopping list", id)
	}
	s.lists = append(s.lists[:i], s.lists[i+1:]...)
	return nil
}

func (s *Store) listIndex(id string) int {
	for i, l := range s.lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func copyTransaction(t core.Transaction) core.Transaction {
	if t.Installments != nil {
		inst := *t.Installments
		t.Installments = &inst
	}
	return t
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %s already exists: %w", kind, id, storage.ErrConflict)
}
