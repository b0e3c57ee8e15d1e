package summary

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// FilterAll disables status filtering in FilterPlans.
const FilterAll = "todos"

// SummarizeInstallmentPlans derives one plan per installment transaction,
// in input order.
//
// An installment counts as paid once its due date is strictly before today,
// so an installment due today is still pending. The stored paidInstallments
// counter is ignored. A plan whose category cannot be resolved fails the
// whole computation with core.ErrCategoryNotFound. today is read in its own
// location.
func SummarizeInstallmentPlans(transactions []core.Transaction, categories []core.Category, today time.Time) ([]core.InstallmentPlan, error) {
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	day := core.DateIn(today, today.Location())

	plans := make([]core.InstallmentPlan, 0)
	for _, t := range transactions {
		if !t.IsInstallment {
			continue
		}
		inst, err := scheduleOf(t)
		if err != nil {
			return nil, err
		}
		category, ok := byID[t.CategoryID]
		if !ok {
			return nil, fmt.Errorf("%w: %q referenced by transaction %s", core.ErrCategoryNotFound, t.CategoryID, t.ID)
		}
		plans = append(plans, buildPlan(t, inst, category, day))
	}
	return plans, nil
}

func buildPlan(t core.Transaction, inst core.InstallmentDetails, category core.Category, today core.Date) core.InstallmentPlan {
	total := inst.TotalInstallments
	amount := InstallmentAmount(t.Amount, total)

	paid := 0
	for i := 0; i < total; i++ {
		if inst.StartDate.AddMonths(i).Before(today.Time) {
			paid++
		}
	}
	paidAmount := amount.Mul(decimal.NewFromInt(int64(paid)))

	plan := core.InstallmentPlan{
		ID:                  t.ID,
		Description:         t.Description,
		PaymentMethod:       t.PaymentMethod,
		TotalAmount:         t.Amount,
		InstallmentAmount:   amount,
		StartDate:           inst.StartDate,
		EndDate:             inst.StartDate.AddMonths(total - 1),
		TotalInstallments:   total,
		PaidInstallments:    paid,
		PendingInstallments: total - paid,
		PaidAmount:          paidAmount,
		PendingAmount:       t.Amount.Sub(paidAmount),
		Status:              core.PlanActive,
		Category:            category,
	}

	if paid >= total {
		plan.Status = core.PlanCompleted
		return plan
	}
	next := inst.StartDate.AddMonths(paid)
	plan.NextDueDate = &next
	// Unreachable while paid counts every due date before today.
	if next.Before(today.Time) {
		plan.Status = core.PlanOverdue
	}
	return plan
}

// FilterPlans keeps the plans with the given status. An empty status or
// FilterAll returns every plan.
func FilterPlans(plans []core.InstallmentPlan, status string) []core.InstallmentPlan {
	if status == "" || status == FilterAll {
		return plans
	}
	out := make([]core.InstallmentPlan, 0, len(plans))
	for _, p := range plans {
		if string(p.Status) == status {
			out = append(out, p)
		}
	}
	return out
}
