package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Revenue TransactionType = "revenue"
	Expense TransactionType = "expense"
)

const (
	Cash      PaymentMethod = "Dinheiro"
	Debit     PaymentMethod = "Débito"
	Credit    PaymentMethod = "Crédito"
	Carne     PaymentMethod = "Carnê"
	Boleto    PaymentMethod = "Boleto"
	Transfer  PaymentMethod = "Transferência"
	Financing PaymentMethod = "Financiamento"
	Loan      PaymentMethod = "Empréstimo"
)

const (
	maxDescLen = 200
	maxNameLen = 100
)

type (
	TransactionType string

	PaymentMethod string

	Category struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Type TransactionType `json:"type"`
	}

	// InstallmentDetails is the schedule of an installment purchase.
	// Due dates are StartDate + i months for i in [0, TotalInstallments).
	InstallmentDetails struct {
		TotalInstallments int  `json:"totalInstallments"`
		PaidInstallments  int  `json:"paidInstallments"`
		StartDate         Date `json:"startDate"`
	}

	// Transaction is a stored revenue or expense. For installment purchases
	// Amount is the total of the plan and Date is only the creation date.
	Transaction struct {
		ID            string              `json:"id"`
		Type          TransactionType     `json:"type"`
		Amount        decimal.Decimal     `json:"amount"`
		Date          Date                `json:"date"`
		Description   string              `json:"description"`
		CategoryID    string              `json:"categoryId"`
		PaymentMethod PaymentMethod       `json:"paymentMethod"`
		IsInstallment bool                `json:"isInstallment"`
		IsRecurrent   bool                `json:"isRecurrent"`
		Installments  *InstallmentDetails `json:"installments,omitempty"`
		// RecurrenceOf links a generated monthly copy to its recurring template.
		RecurrenceOf string `json:"recurrenceOf,omitempty"`
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidSchedule      = errors.New("invalid installment schedule")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidStatus        = errors.New("invalid status")
)

var paymentMethods = []PaymentMethod{Cash, Debit, Credit, Carne, Boleto, Transfer, Financing, Loan}

// PaymentMethods lists the accepted payment methods in display order.
func PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), paymentMethods...)
}

func (t TransactionType) IsValid() bool {
	return t == Revenue || t == Expense
}

func (p PaymentMethod) IsValid() bool {
	for _, m := range paymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return nil
}

func (d InstallmentDetails) Validate() error {
	if d.TotalInstallments < 2 {
		return fmt.Errorf("%w: total installments must be at least 2", ErrInvalidSchedule)
	}
	if d.PaidInstallments < 0 || d.PaidInstallments > d.TotalInstallments {
		return fmt.Errorf("%w: paid installments out of range", ErrInvalidSchedule)
	}
	if d.StartDate.IsEmpty() {
		return fmt.Errorf("%w: missing start date", ErrInvalidSchedule)
	}
	return nil
}

// Normalize trims free text and drops a schedule that a non-installment
// transaction should not carry.
func (t *Transaction) Normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.CategoryID = strings.TrimSpace(t.CategoryID)
	if !t.IsInstallment {
		t.Installments = nil
	}
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescLen {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if !t.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, t.PaymentMethod)
	}
	if t.IsInstallment {
		if t.Installments == nil {
			return fmt.Errorf("%w: missing schedule", ErrInvalidSchedule)
		}
		if err := t.Installments.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsTemplate reports whether t is a recurring template rather than a copy.
func (t Transaction) IsTemplate() bool {
	return t.IsRecurrent && t.RecurrenceOf == "" && !t.IsInstallment
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidName, maxNameLen)
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidDate, ErrInvalidMonth, ErrInvalidType, ErrInvalidAmount,
	ErrEmptyDescription, ErrDescriptionTooLong, ErrEmptyCategory,
	ErrInvalidPaymentMethod, ErrInvalidSchedule, ErrCategoryNotFound,
	ErrCategoryTypeMismatch, ErrInvalidName, ErrInvalidUnit,
	ErrInvalidQuantity, ErrInvalidPrice, ErrInvalidStatus,
}

// IsValidation reports whether err is caused by invalid caller input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
