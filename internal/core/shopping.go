package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	UnitPiece ProductUnit = "un"
	UnitKilo  ProductUnit = "kg"
	UnitLiter ProductUnit = "l"
	UnitDozen ProductUnit = "dz"
	UnitMeter ProductUnit = "m"
	UnitBox   ProductUnit = "cx"
)

const (
	ListPending   ListStatus = "pending"
	ListCompleted ListStatus = "completed"
)

type (
	ProductUnit string

	ListStatus string

	ShoppingCategory struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Product struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		CategoryID string      `json:"categoryId,omitempty"`
		Unit       ProductUnit `json:"unit"`
	}

	// CartItem copies name, category and unit from its product at insert time.
	CartItem struct {
		ID         string          `json:"id"`
		ProductID  string          `json:"productId"`
		Name       string          `json:"name"`
		Quantity   decimal.Decimal `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		Checked    bool            `json:"checked"`
		CategoryID string          `json:"categoryId,omitempty"`
		Unit       ProductUnit     `json:"unit"`
	}

	ShoppingList struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		CreatedAt   Date             `json:"createdAt"`
		Items       []CartItem       `json:"items"`
		Status      ListStatus       `json:"status"`
		CompletedAt *Date            `json:"completedAt,omitempty"`
		TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	}

	// ShoppingListSummary is a list without its items.
	ShoppingListSummary struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		CreatedAt   Date             `json:"createdAt"`
		Status      ListStatus       `json:"status"`
		CompletedAt *Date            `json:"completedAt,omitempty"`
		TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
		ItemCount   int              `json:"itemCount"`
	}

	// ProductGroup is a shopping category with its products.
	ProductGroup struct {
		Category ShoppingCategory `json:"category"`
		Products []Product        `json:"products"`
	}
)

var (
	ErrInvalidUnit     = errors.New("invalid unit")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid price")
)

var productUnits = []ProductUnit{UnitPiece, UnitKilo, UnitLiter, UnitDozen, UnitMeter, UnitBox}

func ProductUnits() []ProductUnit {
	return append([]ProductUnit(nil), productUnits...)
}

func (u ProductUnit) IsValid() bool {
	for _, v := range productUnits {
		if u == v {
			return true
		}
	}
	return false
}

func (c ShoppingCategory) Validate() error {
	return validateName(c.Name)
}

func (p Product) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if !p.Unit.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, p.Unit)
	}
	return nil
}

func (i CartItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return fmt.Errorf("%w: missing product", ErrInvalidName)
	}
	if !i.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if i.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

func (l ShoppingList) Validate() error {
	if err := validateName(l.Name); err != nil {
		return err
	}
	for _, item := range l.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
	}
	return nil
}

// Total is the sum of price times quantity over every item.
func (l ShoppingList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l.Items {
		total = total.Add(item.Price.Mul(item.Quantity))
	}
	return total
}

// SortDate is the completion date of a finished list, its creation date otherwise.
func (l ShoppingList) SortDate() Date {
	if l.CompletedAt != nil && !l.CompletedAt.IsEmpty() {
		return *l.CompletedAt
	}
	return l.CreatedAt
}

func (l ShoppingList) Summary() ShoppingListSummary {
	return ShoppingListSummary{
		ID:          l.ID,
		Name:        l.Name,
		CreatedAt:   l.CreatedAt,
		Status:      l.Status,
		CompletedAt: l.CompletedAt,
		TotalAmount: l.TotalAmount,
		ItemCount:   len(l.Items),
	}
}

// Clone returns a copy that shares no mutable state with l.
func (l ShoppingList) Clone() ShoppingList {
	out := l
	out.Items = append([]CartItem(nil), l.Items...)
	if out.Items == nil {
		out.Items = []CartItem{}
	}
	if l.CompletedAt != nil {
		d := *l.CompletedAt
		out.CompletedAt = &d
	}
	if l.TotalAmount != nil {
		v := *l.TotalAmount
		out.TotalAmount = &v
	}
	return out
}
