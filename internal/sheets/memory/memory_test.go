package memory

import (
	"context"
	"testing"

	"financas/internal/sheets"
)

func TestExporter(t *testing.T) {
	ctx := context.Background()
	e := New()

	if err := e.Upsert(ctx, sheets.TransactionRow{}); err == nil {
		t.Error("Upsert() accepted a row without ID")
	}

	_ = e.Upsert(ctx, sheets.TransactionRow{ID: "t1", Amount: "5000.00"})
	_ = e.Upsert(ctx, sheets.TransactionRow{ID: "t2", Amount: "1500.00"})
	_ = e.Upsert(ctx, sheets.TransactionRow{ID: "t1", Amount: "5100.00"})

	ids, _ := e.ListIDs(ctx)
	if len(ids) != 2 || ids[0] != "t1" || ids[1] != "t2" {
		t.Errorf("ListIDs() = %v", ids)
	}
	if row, ok := e.Row("t1"); !ok || row.Amount != "5100.00" {
		t.Errorf("Row(t1) = %+v, %v", row, ok)
	}

	if err := e.Remove(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Remove(ctx, "t1"); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
	ids, _ = e.ListIDs(ctx)
	if len(ids) != 1 || ids[0] != "t2" {
		t.Errorf("ListIDs() after Remove = %v", ids)
	}
}
