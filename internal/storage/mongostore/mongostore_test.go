package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage/storagetest"
)

func TestTransactionDocument(t *testing.T) {
	tx := core.Transaction{
		ID: "t4", Type: core.Expense, Amount: decimal.NewFromInt(2400), Date: core.NewDate(2024, 5, 20),
		Description: "Curso de Inglês", CategoryID: "c7", PaymentMethod: core.Carne, IsInstallment: true,
		Installments: &core.InstallmentDetails{TotalInstallments: 12, StartDate: core.NewDate(2024, 6, 10)},
	}
	doc := fromTransaction(tx)
	if doc.Amount != "2400" || doc.Date != "2024-05-20" || doc.Installments.StartDate != "2024-06-10" {
		t.Fatalf("fromTransaction() = %+v", doc)
	}

	back, err := doc.toCore()
	if err != nil {
		t.Fatalf("toCore() error = %v", err)
	}
	if !back.Amount.Equal(tx.Amount) || !back.Installments.StartDate.Equal(tx.Installments.StartDate.Time) || back.Description != tx.Description {
		t.Errorf("toCore() = %+v", back)
	}

	doc.Amount = "abc"
	if _, err := doc.toCore(); err == nil {
		t.Error("toCore() accepted a malformed amount")
	}
}

func TestListDocument(t *testing.T) {
	done := core.NewDate(2024, 6, 16)
	total := decimal.RequireFromString("157.8")
	list := core.ShoppingList{
		ID: "sl2", Name: "Compras de Junho", CreatedAt: core.NewDate(2024, 6, 15), Status: core.ListCompleted,
		CompletedAt: &done, TotalAmount: &total,
		Items: []core.CartItem{{ID: "i1", ProductID: "p4", Name: "Maçã", Quantity: decimal.RequireFromString("1.5"), Price: decimal.RequireFromString("8.99"), Unit: core.UnitKilo}},
	}

	back, err := fromList(list).toCore()
	if err != nil {
		t.Fatalf("toCore() error = %v", err)
	}
	if back.CompletedAt == nil || !back.CompletedAt.Equal(done.Time) || back.TotalAmount == nil || !back.TotalAmount.Equal(total) {
		t.Errorf("completion fields = %v / %v", back.CompletedAt, back.TotalAmount)
	}
	if len(back.Items) != 1 || !back.Items[0].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("items = %+v", back.Items)
	}

	pending, err := fromList(core.ShoppingList{ID: "x", Name: "x", CreatedAt: core.NewDate(2024, 1, 1), Status: core.ListPending}).toCore()
	if err != nil || pending.CompletedAt != nil || pending.TotalAmount != nil || pending.Items == nil {
		t.Errorf("pending list = %+v, %v", pending, err)
	}
}

func TestNextSeqIncreases(t *testing.T) {
	s := &Store{}
	prev := s.nextSeq()
	for i := 0; i < 1000; i++ {
		next := s.nextSeq()
		if next <= prev {
			t.Fatalf("nextSeq() = %d after %d", next, prev)
		}
		prev = next
	}
}

func TestStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("financas_test_%d", time.Now().UnixNano())
	s, err := New(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = s.db.Drop(context.Background())
		s.Close()
	}()
	storagetest.Run(t, s)
}
