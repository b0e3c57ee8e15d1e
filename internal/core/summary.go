package core

import "github.com/shopspring/decimal"

const (
	PlanActive    PlanStatus = "ativo"
	PlanCompleted PlanStatus = "concluído"
	PlanOverdue   PlanStatus = "atrasado"
)

type PlanStatus string

func (s PlanStatus) IsValid() bool {
	return s == PlanActive || s == PlanCompleted || s == PlanOverdue
}

// Entry is one line of a monthly view. It is either a stored non-installment
// transaction or a single installment synthesized from a plan, in which case
// ParentID and InstallmentNumber are set. Entries are never persisted.
type Entry struct {
	ID                string          `json:"id"`
	Type              TransactionType `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Date              Date            `json:"date"`
	Description       string          `json:"description"`
	CategoryID        string          `json:"categoryId"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	IsInstallment     bool            `json:"isInstallment"`
	IsRecurrent       bool            `json:"isRecurrent"`
	ParentID          string          `json:"parentId,omitempty"`
	InstallmentNumber int             `json:"installmentNumber,omitempty"`
	TotalInstallments int             `json:"totalInstallments,omitempty"`
}

// EntryFromTransaction copies a non-installment transaction into a view entry.
func EntryFromTransaction(t Transaction) Entry {
	return Entry{
		ID:            t.ID,
		Type:          t.Type,
		Amount:        t.Amount,
		Date:          t.Date,
		Description:   t.Description,
		CategoryID:    t.CategoryID,
		PaymentMethod: t.PaymentMethod,
		IsRecurrent:   t.IsRecurrent,
	}
}

// IsSynthesized reports whether e was derived from an installment plan.
func (e Entry) IsSynthesized() bool {
	return e.ParentID != ""
}

type MonthSummary struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// MonthlyView is the derived list of entries for one calendar month.
type MonthlyView struct {
	Year         int          `json:"year"`
	Month        int          `json:"month"`
	Transactions []Entry      `json:"transactions"`
	Summary      MonthSummary `json:"summary"`
}

// InstallmentPlan is the derived progress of one installment transaction.
type InstallmentPlan struct {
	ID                  string          `json:"id"`
	Description         string          `json:"description"`
	PaymentMethod       PaymentMethod   `json:"paymentMethod"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	InstallmentAmount   decimal.Decimal `json:"installmentAmount"`
	StartDate           Date            `json:"startDate"`
	EndDate             Date            `json:"endDate"`
	NextDueDate         *Date           `json:"nextDueDate,omitempty"`
	TotalInstallments   int             `json:"totalInstallments"`
	PaidInstallments    int             `json:"paidInstallments"`
	PendingInstallments int             `json:"pendingInstallments"`
	PaidAmount          decimal.Decimal `json:"paidAmount"`
	PendingAmount       decimal.Decimal `json:"pendingAmount"`
	Status              PlanStatus      `json:"status"`
	Category            Category        `json:"category"`
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// Dashboard bundles the derived data shown on the finance home screen.
type Dashboard struct {
	MonthlyView      MonthlyView       `json:"monthlyView"`
	InstallmentPlans []InstallmentPlan `json:"installmentPlans"`
	ByCategory       []CategoryAmount  `json:"byCategory"`
}
