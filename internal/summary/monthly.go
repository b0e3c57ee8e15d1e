// Package summary derives read models from stored transactions.
//
// Both builders are pure: they read the slices they are given, never mutate
// them, and never touch a repository.
package summary

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// BuildMonthlyView returns every transaction that affects the given month.
//
// Non-installment transactions are included when their date lies in the
// month. Installment transactions contribute one synthesized entry per due
// date falling in the month, each worth amount / totalInstallments. Entries
// are ordered by date, keeping input order for ties.
func BuildMonthlyView(year, month int, transactions []core.Transaction) (core.MonthlyView, error) {
	if month < 1 || month > 12 {
		return core.MonthlyView{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}

	entries := make([]core.Entry, 0)
	for _, t := range transactions {
		if !t.IsInstallment {
			if t.Date.InMonth(year, month) {
				entries = append(entries, core.EntryFromTransaction(t))
			}
			continue
		}

		inst, err := scheduleOf(t)
		if err != nil {
			return core.MonthlyView{}, err
		}
		amount := InstallmentAmount(t.Amount, inst.TotalInstallments)
		for i := 0; i < inst.TotalInstallments; i++ {
			due := inst.StartDate.AddMonths(i)
			if !due.InMonth(year, month) {
				continue
			}
			entries = append(entries, installmentEntry(t, i+1, inst.TotalInstallments, amount, due))
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Date.Before(entries[b].Date.Time)
	})

	return core.MonthlyView{
		Year:         year,
		Month:        month,
		Transactions: entries,
		Summary:      Totals(entries),
	}, nil
}

// Totals sums revenue and expense entries.
func Totals(entries []core.Entry) core.MonthSummary {
	revenue, expense := decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case core.Revenue:
			revenue = revenue.Add(e.Amount)
		case core.Expense:
			expense = expense.Add(e.Amount)
		}
	}
	return core.MonthSummary{
		TotalRevenue: revenue,
		TotalExpense: expense,
		Balance:      revenue.Sub(expense),
	}
}

// InstallmentAmount is the plain per-installment share of a total.
// Remainders are not redistributed.
func InstallmentAmount(total decimal.Decimal, installments int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(installments)))
}

func installmentEntry(t core.Transaction, number, total int, amount decimal.Decimal, due core.Date) core.Entry {
	return core.Entry{
		ID:                t.ID + "-inst-" + strconv.Itoa(number),
		Type:              t.Type,
		Amount:            amount,
		Date:              due,
		Description:       fmt.Sprintf("%s (%d/%d)", t.Description, number, total),
		CategoryID:        t.CategoryID,
		PaymentMethod:     t.PaymentMethod,
		IsRecurrent:       t.IsRecurrent,
		ParentID:          t.ID,
		InstallmentNumber: number,
		TotalInstallments: total,
	}
}

func scheduleOf(t core.Transaction) (core.InstallmentDetails, error) {
	if t.Installments == nil {
		return core.InstallmentDetails{}, fmt.Errorf("%w: transaction %s has no schedule", core.ErrInvalidSchedule, t.ID)
	}
	if t.Installments.TotalInstallments < 1 {
		return core.InstallmentDetails{}, fmt.Errorf("%w: transaction %s has %d installments",
			core.ErrInvalidSchedule, t.ID, t.Installments.TotalInstallments)
	}
	if t.Installments.StartDate.IsEmpty() {
		return core.InstallmentDetails{}, fmt.Errorf("%w: transaction %s has no start date", core.ErrInvalidSchedule, t.ID)
	}
	return *t.Installments, nil
}

// ExpensesByCategory aggregates the expense entries of a view per category,
// largest first. Unknown categories are grouped under "Sem Categoria".
func ExpensesByCategory(view core.MonthlyView, categories []core.Category) []core.CategoryAmount {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range view.Transactions {
		if e.Type != core.Expense {
			continue
		}
		key := e.CategoryID
		if _, ok := names[key]; !ok {
			key = ""
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] = totals[key].Add(e.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(order))
	for _, key := range order {
		name := names[key]
		if key == "" {
			name = "Sem Categoria"
		}
		out = append(out, core.CategoryAmount{CategoryID: key, Name: name, Amount: totals[key]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Amount.GreaterThan(out[b].Amount)
	})
	return out
}
