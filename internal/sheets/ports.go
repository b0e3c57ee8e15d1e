// Package sheets mirrors transactions into a spreadsheet, one row per
// transaction keyed by its ID in the first column.
package sheets

import (
	"context"
	"strconv"

	"financas/internal/core"
)

// Header is the first row of the export sheet.
var Header = []string{"ID", "Data", "Tipo", "Descrição", "Categoria", "Pagamento", "Valor", "Parcelas"}

// Ports for outbound adapters.
type (
	// TransactionExporter writes and removes transaction rows. Both
	// operations are idempotent.
	TransactionExporter interface {
		Upsert(ctx context.Context, row TransactionRow) error
		Remove(ctx context.Context, id string) error
	}

	// RowLister returns the IDs of every exported row.
	RowLister interface {
		ListIDs(ctx context.Context) ([]string, error)
	}
)

// TransactionRow is the exported form of a transaction.
type TransactionRow struct {
	ID            string
	Date          string
	Type          string
	Description   string
	Category      string
	PaymentMethod string
	Amount        string
	Installments  string
}

// RowFromTransaction flattens t. categoryName may be empty when the category
// is unknown. Installment purchases carry their total and the plan size.
func RowFromTransaction(t core.Transaction, categoryName string) TransactionRow {
	row := TransactionRow{
		ID:            t.ID,
		Date:          t.Date.String(),
		Type:          typeLabel(t.Type),
		Description:   t.Description,
		Category:      categoryName,
		PaymentMethod: string(t.PaymentMethod),
		Amount:        t.Amount.StringFixed(2),
	}
	if t.IsInstallment && t.Installments != nil {
		row.Installments = strconv.Itoa(t.Installments.TotalInstallments) + "x"
	}
	return row
}

// Values returns the row cells in Header order.
func (r TransactionRow) Values() []any {
	return []any{r.ID, r.Date, r.Type, r.Description, r.Category, r.PaymentMethod, r.Amount, r.Installments}
}

func typeLabel(t core.TransactionType) string {
	switch t {
	case core.Revenue:
		return "Receita"
	case core.Expense:
		return "Despesa"
	default:
		return string(t)
	}
}
