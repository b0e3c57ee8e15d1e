package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, New())
}

func TestNewSeededUsesBuiltInData(t *testing.T) {
	s, err := NewSeeded(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 8 {
		t.Errorf("got %d categories, want 8", len(cats))
	}
	t7, err := s.GetTransaction(context.Background(), "t7")
	if err != nil || !t7.Amount.Equal(decimal.RequireFromString("49.9")) || !t7.IsRecurrent {
		t.Errorf("GetTransaction(t7) = %+v, %v", t7, err)
	}
	products, _ := s.ListProducts(context.Background())
	if len(products) != 37 {
		t.Errorf("got %d products, want 37", len(products))
	}
}

func TestNewSeededReadsDataDir(t *testing.T) {
	dir := t.TempDir()
	seed := `{"categories":[{"id":"x1","name":"Pets","type":"expense"}]}`
	if err := os.WriteFile(filepath.Join(dir, "seed.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewSeeded(context.Background(), dir)
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 1 || cats[0].Name != "Pets" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx := core.Transaction{
		ID: "t", Type: core.Expense, Amount: decimal.NewFromInt(10), Date: core.NewDate(2024, 1, 1),
		IsInstallment: true, Installments: &core.InstallmentDetails{TotalInstallments: 2, StartDate: core.NewDate(2024, 1, 1)},
	}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	tx.Installments.TotalInstallments = 99

	got, _ := s.GetTransaction(ctx, "t")
	got.Installments.PaidInstallments = 5
	again, _ := s.GetTransaction(ctx, "t")
	if again.Installments.TotalInstallments != 2 || again.Installments.PaidInstallments != 0 {
		t.Errorf("stored schedule was mutated: %+v", again.Installments)
	}
}
