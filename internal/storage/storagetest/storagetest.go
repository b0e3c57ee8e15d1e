// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage"
)

// Run exercises s, which must start empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("categories", func(t *testing.T) { testCategories(ctx, t, s) })
	t.Run("transactions", func(t *testing.T) { testTransactions(ctx, t, s) })
	t.Run("shopping catalog", func(t *testing.T) { testCatalog(ctx, t, s) })
	t.Run("shopping lists", func(t *testing.T) { testLists(ctx, t, s) })
	t.Run("seed", func(t *testing.T) { testSeed(ctx, t, s) })
}

func testCategories(ctx context.Context, t *testing.T, s storage.Store) {
	c := core.Category{ID: "cat-a", Name: "Mercado", Type: core.Expense}
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if err := s.CreateCategory(ctx, c); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate CreateCategory() error = %v, want ErrConflict", err)
	}
	got, err := s.GetCategory(ctx, "cat-a")
	if err != nil || got != c {
		t.Fatalf("GetCategory() = %+v, %v", got, err)
	}
	if _, err := s.GetCategory(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetCategory(missing) error = %v", err)
	}
	if err := s.DeleteCategory(ctx, "cat-a"); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if err := s.DeleteCategory(ctx, "cat-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteCategory() error = %v", err)
	}
}

func testTransactions(ctx context.Context, t *testing.T, s storage.Store) {
	plain := core.Transaction{
		ID: "tx-1", Type: core.Expense, Amount: decimal.RequireFromString("49.90"), Date: core.NewDate(2024, 7, 20),
		Description: "Assinatura", CategoryID: "cat-x", PaymentMethod: core.Credit, IsRecurrent: true,
	}
	plan := core.Transaction{
		ID: "tx-2", Type: core.Expense, Amount: decimal.NewFromInt(2400), Date: core.NewDate(2024, 5, 20),
		Description: "Curso", CategoryID: "cat-x", PaymentMethod: core.Carne, IsInstallment: true,
		Installments: &core.InstallmentDetails{TotalInstallments: 12, PaidInstallments: 1, StartDate: core.NewDate(2024, 6, 10)},
	}
	copyOf := plain
	copyOf.ID, copyOf.IsRecurrent, copyOf.RecurrenceOf, copyOf.CategoryID = "tx-3", false, "tx-1", "cat-y"

	for _, tx := range []core.Transaction{plain, plan, copyOf} {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction(%s) error = %v", tx.ID, err)
		}
	}
	if err := s.CreateTransaction(ctx, plain); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate CreateTransaction() error = %v", err)
	}

	list, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 3 || list[0].ID != "tx-1" || list[1].ID != "tx-2" || list[2].ID != "tx-3" {
		t.Fatalf("ListTransactions() order = %+v", list)
	}

	got, err := s.GetTransaction(ctx, "tx-2")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !got.Amount.Equal(plan.Amount) || !got.Date.Equal(plan.Date.Time) || got.Installments == nil ||
		got.Installments.TotalInstallments != 12 || got.Installments.PaidInstallments != 1 ||
		!got.Installments.StartDate.Equal(plan.Installments.StartDate.Time) {
		t.Errorf("GetTransaction() = %+v", got)
	}
	if got3, _ := s.GetTransaction(ctx, "tx-3"); got3.RecurrenceOf != "tx-1" || got3.Installments != nil {
		t.Errorf("GetTransaction(tx-3) = %+v", got3)
	}
	if got1, _ := s.GetTransaction(ctx, "tx-1"); !got1.Amount.Equal(decimal.RequireFromString("49.9")) || !got1.IsRecurrent {
		t.Errorf("GetTransaction(tx-1) = %+v", got1)
	}

	got.Description = "Curso de Inglês"
	got.Installments.PaidInstallments = 2
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	updated, _ := s.GetTransaction(ctx, "tx-2")
	if updated.Description != "Curso de Inglês" || updated.Installments.PaidInstallments != 2 {
		t.Errorf("after update = %+v", updated)
	}
	missing := plain
	missing.ID = "nope"
	if err := s.UpdateTransaction(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateTransaction(missing) error = %v", err)
	}

	if n, err := s.CountTransactionsByCategory(ctx, "cat-x"); err != nil || n != 2 {
		t.Errorf("CountTransactionsByCategory() = %d, %v", n, err)
	}

	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		if err := s.DeleteTransaction(ctx, id); err != nil {
			t.Fatalf("DeleteTransaction(%s) error = %v", id, err)
		}
	}
	if err := s.DeleteTransaction(ctx, "tx-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v", err)
	}
}

func testCatalog(ctx context.Context, t *testing.T, s storage.Store) {
	cat := core.ShoppingCategory{ID: "sc-a", Name: "Padaria"}
	if err := s.CreateShoppingCategory(ctx, cat); err != nil {
		t.Fatalf("CreateShoppingCategory() error = %v", err)
	}
	cat.Name = "Padaria e Doces"
	if err := s.UpdateShoppingCategory(ctx, cat); err != nil {
		t.Fatalf("UpdateShoppingCategory() error = %v", err)
	}
	if got, err := s.GetShoppingCategory(ctx, "sc-a"); err != nil || got.Name != "Padaria e Doces" {
		t.Errorf("GetShoppingCategory() = %+v, %v", got, err)
	}

	p := core.Product{ID: "prod-a", Name: "Pão", CategoryID: "sc-a", Unit: core.UnitPiece}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if err := s.CreateProduct(ctx, p); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate CreateProduct() error = %v", err)
	}
	p.Unit = core.UnitKilo
	if err := s.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if got, err := s.GetProduct(ctx, "prod-a"); err != nil || got != p {
		t.Errorf("GetProduct() = %+v, %v", got, err)
	}
	if n, err := s.CountProductsByCategory(ctx, "sc-a"); err != nil || n != 1 {
		t.Errorf("CountProductsByCategory() = %d, %v", n, err)
	}
	if products, err := s.ListProducts(ctx); err != nil || len(products) != 1 {
		t.Errorf("ListProducts() = %+v, %v", products, err)
	}

	if err := s.DeleteProduct(ctx, "prod-a"); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if _, err := s.GetProduct(ctx, "prod-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetProduct(deleted) error = %v", err)
	}
	if err := s.DeleteShoppingCategory(ctx, "sc-a"); err != nil {
		t.Fatalf("DeleteShoppingCategory() error = %v", err)
	}
	if err := s.UpdateShoppingCategory(ctx, cat); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateShoppingCategory(deleted) error = %v", err)
	}
}

func testLists(ctx context.Context, t *testing.T, s storage.Store) {
	list := core.ShoppingList{
		ID: "list-a", Name: "Semana", CreatedAt: core.NewDate(2024, 7, 22), Status: core.ListPending,
		Items: []core.CartItem{
			{ID: "it-1", ProductID: "p1", Name: "Arroz", Quantity: decimal.NewFromInt(1), Price: decimal.RequireFromString("25.50"), Checked: true, CategoryID: "sc1", Unit: core.UnitPiece},
			{ID: "it-2", ProductID: "p4", Name: "Maçã", Quantity: decimal.RequireFromString("1.5"), Price: decimal.RequireFromString("8.99"), CategoryID: "sc3", Unit: core.UnitKilo},
		},
	}
	if err := s.CreateShoppingList(ctx, list); err != nil {
		t.Fatalf("CreateShoppingList() error = %v", err)
	}

	got, err := s.GetShoppingList(ctx, "list-a")
	if err != nil {
		t.Fatalf("GetShoppingList() error = %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ID != "it-1" || !got.Items[1].Quantity.Equal(decimal.RequireFromString("1.5")) ||
		!got.Items[0].Checked || got.CompletedAt != nil || got.TotalAmount != nil {
		t.Fatalf("GetShoppingList() = %+v", got)
	}

	done := core.NewDate(2024, 7, 23)
	total := got.Total()
	got.Items = got.Items[:1]
	got.Status = core.ListCompleted
	got.CompletedAt = &done
	got.TotalAmount = &total
	if err := s.SaveShoppingList(ctx, got); err != nil {
		t.Fatalf("SaveShoppingList() error = %v", err)
	}

	saved, err := s.GetShoppingList(ctx, "list-a")
	if err != nil {
		t.Fatalf("GetShoppingList() error = %v", err)
	}
	if len(saved.Items) != 1 || saved.Status != core.ListCompleted || saved.CompletedAt == nil ||
		!saved.CompletedAt.Equal(done.Time) || saved.TotalAmount == nil || !saved.TotalAmount.Equal(total) {
		t.Errorf("saved list = %+v", saved)
	}

	lists, err := s.ListShoppingLists(ctx)
	if err != nil || len(lists) != 1 {
		t.Fatalf("ListShoppingLists() = %+v, %v", lists, err)
	}

	if err := s.DeleteShoppingList(ctx, "list-a"); err != nil {
		t.Fatalf("DeleteShoppingList() error = %v", err)
	}
	if err := s.SaveShoppingList(ctx, saved); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SaveShoppingList(deleted) error = %v", err)
	}
}

func testSeed(ctx context.Context, t *testing.T, s storage.Store) {
	ds, err := storage.DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed() error = %v", err)
	}
	if err := ds.Apply(ctx, s); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := ds.Apply(ctx, s); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	txs, err := s.ListTransactions(ctx)
	if err != nil || len(txs) != len(ds.Transactions) {
		t.Fatalf("ListTransactions() = %d, %v", len(txs), err)
	}
	list, err := s.GetShoppingList(ctx, "sl1")
	if err != nil || len(list.Items) != 2 {
		t.Errorf("GetShoppingList(sl1) = %+v, %v", list, err)
	}
}
