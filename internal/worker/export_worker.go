// Package worker mirrors stored transactions into the spreadsheet export.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/sheets"
	"financas/internal/storage"
)

const (
	sequenceMemory = 10000
	sequenceTTL    = 24 * time.Hour
)

// Source is the read side of the store the worker exports from.
type Source interface {
	storage.CategoryRepository
	storage.TransactionRepository
}

// ExportWorker applies transaction events to a spreadsheet. Events only
// carry IDs, so every write reflects the state of the store when the event
// is handled.
type ExportWorker struct {
	source    Source
	exporter  sheets.TransactionExporter
	batchSize int
	// last handled sequence per transaction ID
	seen *cache.LRUCache[int64]
}

func NewExportWorker(source Source, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &ExportWorker{
		source:    source,
		exporter:  exporter,
		batchSize: batchSize,
		seen:      cache.NewLRUCache[int64](sequenceMemory, sequenceTTL),
	}
}

// HandleEvent exports the current state of the event's transaction. Events
// older than one already handled for the same ID are dropped.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if last, ok := w.seen.Get(ev.TransactionID); ok && ev.Sequence <= last {
		slog.DebugContext(ctx, "Dropping stale transaction event",
			"transaction_id", ev.TransactionID,
			"sequence", ev.Sequence,
			"last_sequence", last)
		return nil
	}

	slog.InfoContext(ctx, "Processing transaction event",
		"type", string(ev.Type),
		"transaction_id", ev.TransactionID,
		"sequence", ev.Sequence)

	var err error
	if ev.Type == amqp.EventDeleted {
		err = w.exporter.Remove(ctx, ev.TransactionID)
	} else {
		err = w.export(ctx, ev.TransactionID)
	}
	if err != nil {
		return err
	}

	w.seen.Set(ev.TransactionID, ev.Sequence)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, id string) error {
	tx, err := w.source.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted after the event was published; the delete event follows.
		return w.exporter.Remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}

	name := ""
	category, err := w.source.GetCategory(ctx, tx.CategoryID)
	switch {
	case err == nil:
		name = category.Name
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("get category %s: %w", tx.CategoryID, err)
	}

	if err := w.exporter.Upsert(ctx, sheets.RowFromTransaction(tx, name)); err != nil {
		return fmt.Errorf("export transaction %s: %w", id, err)
	}
	return nil
}

// SyncAll exports every stored transaction and, when the exporter can list
// its rows, removes rows whose transaction no longer exists. It recovers
// from events lost while the worker was down.
func (w *ExportWorker) SyncAll(ctx context.Context) (int, error) {
	txs, err := w.source.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	categories, err := w.source.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	exported := 0
	for start := 0; start < len(txs); start += w.batchSize {
		end := min(start+w.batchSize, len(txs))
		for _, tx := range txs[start:end] {
			if err := ctx.Err(); err != nil {
				return exported, err
			}
			if err := w.exporter.Upsert(ctx, sheets.RowFromTransaction(tx, names[tx.CategoryID])); err != nil {
				return exported, fmt.Errorf("export transaction %s: %w", tx.ID, err)
			}
			exported++
		}
		slog.InfoContext(ctx, "Exported transaction batch", "from", start, "to", end, "total", len(txs))
	}

	removed, err := w.prune(ctx, txs)
	if err != nil {
		return exported, err
	}

	slog.InfoContext(ctx, "Spreadsheet sync completed", "exported", exported, "removed", removed)
	return exported, nil
}

func (w *ExportWorker) prune(ctx context.Context, txs []core.Transaction) (int, error) {
	lister, ok := w.exporter.(sheets.RowLister)
	if !ok {
		return 0, nil
	}
	ids, err := lister.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list exported rows: %w", err)
	}
	stored := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		stored[tx.ID] = struct{}{}
	}
	removed := 0
	for _, id := range ids {
		if _, ok := stored[id]; ok {
			continue
		}
		if err := w.exporter.Remove(ctx, id); err != nil {
			return removed, fmt.Errorf("remove row %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
