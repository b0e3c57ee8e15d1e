package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"financas/internal/amqp"
	"financas/internal/sheets"
	sheetsmemory "financas/internal/sheets/memory"
	"financas/internal/storage/memory"
)

func newWorker(t *testing.T) (*ExportWorker, *memory.Store, *sheetsmemory.Exporter) {
	t.Helper()
	store, err := memory.NewSeeded(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewSeeded() error = %v", err)
	}
	exporter := sheetsmemory.New()
	return NewExportWorker(store, exporter, 2), store, exporter
}

func TestExportWorker_HandleEvent(t *testing.T) {
	w, store, exporter := newWorker(t)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, "t3", 10)); err != nil {
		t.Fatalf("HandleEvent(created) error = %v", err)
	}
	row, ok := exporter.Row("t3")
	if !ok {
		t.Fatal("t3 was not exported")
	}
	if row.Category != "Alimentação" || row.Amount != "800.00" || row.Type != "Despesa" {
		t.Errorf("row = %+v", row)
	}

	tx, _ := store.GetTransaction(ctx, "t3")
	tx.Amount = decimal.NewFromInt(850)
	if err := store.UpdateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, "t3", 11)); err != nil {
		t.Fatalf("HandleEvent(updated) error = %v", err)
	}
	if row, _ := exporter.Row("t3"); row.Amount != "850.00" {
		t.Errorf("Amount after update = %s, want 850.00", row.Amount)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, "t3", 12)); err != nil {
		t.Fatalf("HandleEvent(deleted) error = %v", err)
	}
	if _, ok := exporter.Row("t3"); ok {
		t.Error("t3 still exported after delete event")
	}
}

func TestExportWorker_DropsStaleEvents(t *testing.T) {
	w, _, exporter := newWorker(t)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, "t1", 5)); err != nil {
		t.Fatal(err)
	}
	// An older delete arriving late must not remove the row.
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, "t1", 4)); err != nil {
		t.Fatal(err)
	}
	if _, ok := exporter.Row("t1"); !ok {
		t.Error("stale delete removed the row")
	}
	// Same sequence is a redelivery.
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, "t1", 5)); err != nil {
		t.Fatal(err)
	}
	if _, ok := exporter.Row("t1"); !ok {
		t.Error("redelivered sequence was applied")
	}
}

func TestExportWorker_MissingTransactionRemovesRow(t *testing.T) {
	w, store, exporter := newWorker(t)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, "t2", 1)); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteTransaction(ctx, "t2"); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, "t2", 2)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if _, ok := exporter.Row("t2"); ok {
		t.Error("row for a deleted transaction was kept")
	}
}

type failingExporter struct{ err error }

func (f failingExporter) Upsert(context.Context, sheets.TransactionRow) error { return f.err }
func (f failingExporter) Remove(context.Context, string) error               { return f.err }

func TestExportWorker_ExporterErrorIsRetriable(t *testing.T) {
	store, err := memory.NewSeeded(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("quota exceeded")
	w := NewExportWorker(store, failingExporter{err: boom}, 10)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, "t1", 1)); !errors.Is(err, boom) {
		t.Fatalf("HandleEvent() error = %v, want %v", err, boom)
	}
	// A failed event is not remembered, so the redelivery is processed.
	if _, ok := w.seen.Get("t1"); ok {
		t.Error("failed event recorded as handled")
	}
}

func TestExportWorker_SyncAll(t *testing.T) {
	w, _, exporter := newWorker(t)
	ctx := context.Background()

	if err := exporter.Upsert(ctx, sheets.TransactionRow{ID: "orphan"}); err != nil {
		t.Fatal(err)
	}

	n, err := w.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if n != 5 {
		t.Errorf("SyncAll() exported %d, want 5", n)
	}
	ids, _ := exporter.ListIDs(ctx)
	if len(ids) != 5 {
		t.Errorf("rows = %v, want the 5 stored transactions", ids)
	}
	if _, ok := exporter.Row("orphan"); ok {
		t.Error("orphan row was not pruned")
	}
	if row, _ := exporter.Row("t4"); row.Installments != "12x" {
		t.Errorf("t4 installments = %q, want 12x", row.Installments)
	}
}

func TestExportWorker_SyncAllCancelled(t *testing.T) {
	w, _, _ := newWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.SyncAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("SyncAll() error = %v, want context.Canceled", err)
	}
}
