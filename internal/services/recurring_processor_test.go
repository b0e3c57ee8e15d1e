package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

func copiesOf(t *testing.T, svc *FinanceService, templateID string) []core.Transaction {
	t.Helper()
	txs, err := svc.ListTransactions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var out []core.Transaction
	for _, tx := range txs {
		if tx.RecurrenceOf == templateID {
			out = append(out, tx)
		}
	}
	return out
}

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	svc, _, pub := newFinance(t)
	p := NewRecurringProcessor(svc)
	ctx := context.Background()

	// t7 is a streaming subscription charged on the 20th since July 2024.
	n, err := p.ProcessDue(ctx, time.Date(2024, 7, 25, 6, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Fatalf("ProcessDue(template month) = %d, %v", n, err)
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 8, 19, 6, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Fatalf("ProcessDue(before day) = %d, %v", n, err)
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 8, 21, 6, 0, 0, 0, time.UTC))
	if err != nil || n != 1 {
		t.Fatalf("ProcessDue(after day) = %d, %v", n, err)
	}
	copies := copiesOf(t, svc, "t7")
	if len(copies) != 1 {
		t.Fatalf("got %d copies, want 1", len(copies))
	}
	c := copies[0]
	if c.IsRecurrent || !c.Date.Equal(core.NewDate(2024, 8, 20).Time) || !c.Amount.Equal(decimal.RequireFromString("49.90")) || c.Description != "Assinatura Streaming" {
		t.Errorf("copy = %+v", c)
	}
	if pub.last() != "created:"+c.ID {
		t.Errorf("last event = %q", pub.last())
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 8, 31, 6, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Errorf("second run in August = %d, %v", n, err)
	}

	view, _ := svc.MonthlyView(ctx, 2024, 8)
	found := false
	for _, e := range view.Transactions {
		found = found || e.ID == c.ID
	}
	if !found {
		t.Error("copy missing from the August view")
	}

	n, err = p.ProcessDue(ctx, time.Date(2024, 9, 20, 6, 0, 0, 0, time.UTC))
	if err != nil || n != 1 || len(copiesOf(t, svc, "t7")) != 2 {
		t.Errorf("September run = %d, %v", n, err)
	}
}

func TestRecurringProcessor_ClampsToMonthEnd(t *testing.T) {
	svc, _, _ := newFinance(t)
	ctx := context.Background()

	tpl, err := svc.CreateTransaction(ctx, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(300), Date: core.NewDate(2024, 1, 31),
		Description: "Academia", CategoryID: "c8", PaymentMethod: core.Credit, IsRecurrent: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := NewRecurringProcessor(svc).ProcessDue(ctx, time.Date(2024, 2, 29, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	copies := copiesOf(t, svc, tpl.ID)
	if n != 1 || len(copies) != 1 || !copies[0].Date.Equal(core.NewDate(2024, 2, 29).Time) {
		t.Errorf("created %d, copies = %+v", n, copies)
	}
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	if _, err := (&RecurringProcessor{}).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("ProcessDue() on an empty processor should fail")
	}
}

func TestRecurringProcessor_EditedCopyStaysLinked(t *testing.T) {
	svc, _, _ := newFinance(t)
	p := NewRecurringProcessor(svc)
	ctx := context.Background()

	if n, err := p.ProcessDue(ctx, time.Date(2024, 8, 20, 6, 0, 0, 0, time.UTC)); err != nil || n != 1 {
		t.Fatalf("ProcessDue() = %d, %v", n, err)
	}
	c := copiesOf(t, svc, "t7")[0]

	// Clients send the fields they edit; the template link is not one of them.
	edit := c
	edit.RecurrenceOf = ""
	edit.Amount = decimal.RequireFromString("54.90")
	updated, err := svc.UpdateTransaction(ctx, c.ID, edit)
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.RecurrenceOf != "t7" {
		t.Errorf("RecurrenceOf = %q, want t7", updated.RecurrenceOf)
	}

	// A forged link is ignored too.
	edit.RecurrenceOf = "t1"
	if updated, _ = svc.UpdateTransaction(ctx, c.ID, edit); updated.RecurrenceOf != "t7" {
		t.Errorf("forged RecurrenceOf = %q, want t7", updated.RecurrenceOf)
	}

	if n, err := p.ProcessDue(ctx, time.Date(2024, 8, 21, 6, 0, 0, 0, time.UTC)); err != nil || n != 0 {
		t.Errorf("ProcessDue() after edit = %d, %v", n, err)
	}
	copies := copiesOf(t, svc, "t7")
	if len(copies) != 1 || !copies[0].Amount.Equal(decimal.RequireFromString("54.90")) {
		t.Errorf("copies = %+v", copies)
	}
}

func TestRecurringProcessor_DueDayInLocalTime(t *testing.T) {
	// 02:00 UTC on August 20 is still August 19 in São Paulo.
	run := time.Date(2024, 8, 20, 2, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		loc  *time.Location
		want int
	}{
		{"UTC", time.UTC, 1},
		{"UTC-3", time.FixedZone("BRT", -3*60*60), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newFinance(t)
			svc.SetLocation(tt.loc)
			n, err := NewRecurringProcessor(svc).ProcessDue(context.Background(), run)
			if err != nil || n != tt.want {
				t.Errorf("ProcessDue() = %d, %v, want %d", n, err, tt.want)
			}
		})
	}
}
