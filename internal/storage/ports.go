// Package storage defines the repositories the services read and write
// through. Implementations live in the memory, sqlstore and mongostore
// subpackages.
package storage

import (
	"context"
	"errors"

	"financas/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// CategoryRepository stores financial categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// TransactionRepository stores transactions. ListTransactions returns them
// in insertion order.
type TransactionRepository interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	CountTransactionsByCategory(ctx context.Context, categoryID string) (int, error)
}

// ShoppingRepository stores the shopping catalog and lists. Items are saved
// together with their list.
type ShoppingRepository interface {
	ListShoppingCategories(ctx context.Context) ([]core.ShoppingCategory, error)
	GetShoppingCategory(ctx context.Context, id string) (core.ShoppingCategory, error)
	CreateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error
	UpdateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error
	DeleteShoppingCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]core.Product, error)
	GetProduct(ctx context.Context, id string) (core.Product, error)
	CreateProduct(ctx context.Context, p core.Product) error
	UpdateProduct(ctx context.Context, p core.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CountProductsByCategory(ctx context.Context, categoryID string) (int, error)

	ListShoppingLists(ctx context.Context) ([]core.ShoppingList, error)
	GetShoppingList(ctx context.Context, id string) (core.ShoppingList, error)
	CreateShoppingList(ctx context.Context, l core.ShoppingList) error
	// SaveShoppingList replaces the stored list and all of its items.
	SaveShoppingList(ctx context.Context, l core.ShoppingList) error
	DeleteShoppingList(ctx context.Context, id string) error
}

// Store is a complete data backend.
type Store interface {
	CategoryRepository
	TransactionRepository
	ShoppingRepository
	Ping(ctx context.Context) error
	Close() error
}
