package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
)

// RecurringProcessor copies recurring templates into the current month.
type RecurringProcessor struct {
	finance *FinanceService
	checker DuenessChecker
}

func NewRecurringProcessor(finance *FinanceService) *RecurringProcessor {
	checker, _ := GetDuenessChecker(Monthly)
	return &RecurringProcessor{finance: finance, checker: checker}
}

// ProcessDue creates one copy of every template due in the month of now and
// returns how many were created. A failing template is logged and skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.finance == nil || p.checker == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	txs, err := p.finance.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}

	lastCopy := make(map[string]core.Date)
	var templates []core.Transaction
	for _, t := range txs {
		switch {
		case t.RecurrenceOf != "":
			if prev, ok := lastCopy[t.RecurrenceOf]; !ok || t.Date.After(prev.Time) {
				lastCopy[t.RecurrenceOf] = t.Date
			}
		case t.IsTemplate():
			templates = append(templates, t)
		}
	}

	today := p.finance.DateAt(now)
	slog.InfoContext(ctx, "Processing recurring transactions",
		"templates", len(templates),
		"processing_date", today.String())

	created := 0
	for _, tpl := range templates {
		if !p.checker.IsDue(lastCopy[tpl.ID], today, tpl.Date) {
			continue
		}

		copied := tpl
		copied.IsRecurrent = false
		copied.RecurrenceOf = tpl.ID
		copied.Date = p.checker.DueDate(today, tpl.Date)

		saved, err := p.finance.CreateTransaction(ctx, copied)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"template_id", tpl.ID,
				"description", tpl.Description,
				"error", err)
			continue
		}

		created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tpl.ID,
			"transaction_id", saved.ID,
			"amount", saved.Amount.StringFixed(2),
			"date", saved.Date.String())
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", created,
		"total_checked", len(templates))

	return created, nil
}
