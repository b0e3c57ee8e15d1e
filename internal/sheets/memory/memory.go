package memory

import (
	"context"
	"errors"
	"sync"

	"financas/internal/sheets"
)

// Exporter keeps exported rows in memory in first-insert order.
type Exporter struct {
	mu    sync.Mutex
	order []string
	rows  map[string]sheets.TransactionRow
}

var (
	_ sheets.TransactionExporter = (*Exporter)(nil)
	_ sheets.RowLister           = (*Exporter)(nil)
)

func New() *Exporter {
	return &Exporter{rows: make(map[string]sheets.TransactionRow)}
}

func (e *Exporter) Upsert(_ context.Context, row sheets.TransactionRow) error {
	if row.ID == "" {
		return errors.New("row without ID")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[row.ID]; !ok {
		e.order = append(e.order, row.ID)
	}
	e.rows[row.ID] = row
	return nil
}

func (e *Exporter) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[id]; !ok {
		return nil
	}
	delete(e.rows, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

func (e *Exporter) ListIDs(context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...), nil
}

// Row returns the exported row for id.
func (e *Exporter) Row(id string) (sheets.TransactionRow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	row, ok := e.rows[id]
	return row, ok
}
