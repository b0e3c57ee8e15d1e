package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"financas/internal/core"
)

// SeedFile is the name looked up in the data directory to override the
// built-in demo data.
const SeedFile = "seed.json"

//go:embed seed.json
var defaultSeed []byte

// Dataset is a full snapshot of every collection.
type Dataset struct {
	Categories         []core.Category         `json:"categories"`
	Transactions       []core.Transaction      `json:"transactions"`
	ShoppingCategories []core.ShoppingCategory `json:"shoppingCategories"`
	Products           []core.Product          `json:"products"`
	ShoppingLists      []core.ShoppingList     `json:"shoppingLists"`
}

// DefaultSeed returns the built-in demo data.
func DefaultSeed() (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(defaultSeed, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode default seed: %w", err)
	}
	return ds, nil
}

// LoadSeed reads dir/seed.json, falling back to the built-in data when dir
// is empty or holds no seed file.
func LoadSeed(dir string) (Dataset, error) {
	if dir == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(filepath.Join(dir, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSeed()
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed file: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode seed file %s: %w", SeedFile, err)
	}
	return ds, nil
}

// Apply writes every record of ds into s. Records that already exist are
// skipped, so seeding twice is harmless.
func (ds Dataset) Apply(ctx context.Context, s Store) error {
	for _, c := range ds.Categories {
		if err := skipConflict(s.CreateCategory(ctx, c)); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	for _, t := range ds.Transactions {
		if err := skipConflict(s.CreateTransaction(ctx, t)); err != nil {
			return fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
	}
	for _, c := range ds.ShoppingCategories {
		if err := skipConflict(s.CreateShoppingCategory(ctx, c)); err != nil {
			return fmt.Errorf("seed shopping category %s: %w", c.ID, err)
		}
	}
	for _, p := range ds.Products {
		if err := skipConflict(s.CreateProduct(ctx, p)); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	for _, l := range ds.ShoppingLists {
		if err := skipConflict(s.CreateShoppingList(ctx, l)); err != nil {
			return fmt.Errorf("seed shopping list %s: %w", l.ID, err)
		}
	}
	return nil
}

func skipConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}
