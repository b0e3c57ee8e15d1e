package mongostore

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Amounts and dates are stored as strings so documents round-trip
// without float drift.

type categoryDoc struct {
	ID   string `bson:"_id,omitempty"`
	Name string `bson:"name"`
	Type string `bson:"type"`
	Seq  int64  `bson:"seq,omitempty"`
}

type installmentDoc struct {
	TotalInstallments int    `bson:"totalInstallments"`
	PaidInstallments  int    `bson:"paidInstallments"`
	StartDate         string `bson:"startDate"`
}

type transactionDoc struct {
	ID            string          `bson:"_id,omitempty"`
	Type          string          `bson:"type"`
	Amount        string          `bson:"amount"`
	Date          string          `bson:"date"`
	Description   string          `bson:"description"`
	CategoryID    string          `bson:"categoryId"`
	PaymentMethod string          `bson:"paymentMethod"`
	IsInstallment bool            `bson:"isInstallment"`
	IsRecurrent   bool            `bson:"isRecurrent"`
	Installments  *installmentDoc `bson:"installments"`
	RecurrenceOf  string          `bson:"recurrenceOf"`
	Seq           int64           `bson:"seq,omitempty"`
}

type shoppingCategoryDoc struct {
	ID   string `bson:"_id,omitempty"`
	Name string `bson:"name"`
	Seq  int64  `bson:"seq,omitempty"`
}

type productDoc struct {
	ID         string `bson:"_id,omitempty"`
	Name       string `bson:"name"`
	CategoryID string `bson:"categoryId"`
	Unit       string `bson:"unit"`
	Seq        int64  `bson:"seq,omitempty"`
}

type itemDoc struct {
	ID         string `bson:"id"`
	ProductID  string `bson:"productId"`
	Name       string `bson:"name"`
	Quantity   string `bson:"quantity"`
	Price      string `bson:"price"`
	Checked    bool   `bson:"checked"`
	CategoryID string `bson:"categoryId"`
	Unit       string `bson:"unit"`
}

type listDoc struct {
	ID          string    `bson:"_id,omitempty"`
	Name        string    `bson:"name"`
	CreatedAt   string    `bson:"createdAt"`
	Status      string    `bson:"status"`
	CompletedAt string    `bson:"completedAt"`
	TotalAmount string    `bson:"totalAmount"`
	Items       []itemDoc `bson:"items"`
	Seq         int64     `bson:"seq,omitempty"`
}

func fromCategory(c core.Category) categoryDoc {
	return categoryDoc{ID: c.ID, Name: c.Name, Type: string(c.Type)}
}

func (d categoryDoc) toCore() core.Category {
	return core.Category{ID: d.ID, Name: d.Name, Type: core.TransactionType(d.Type)}
}

func fromTransaction(t core.Transaction) transactionDoc {
	d := transactionDoc{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		Date:          t.Date.String(),
		Description:   t.Description,
		CategoryID:    t.CategoryID,
		PaymentMethod: string(t.PaymentMethod),
		IsInstallment: t.IsInstallment,
		IsRecurrent:   t.IsRecurrent,
		RecurrenceOf:  t.RecurrenceOf,
	}
	if t.Installments != nil {
		d.Installments = &installmentDoc{
			TotalInstallments: t.Installments.TotalInstallments,
			PaidInstallments:  t.Installments.PaidInstallments,
			StartDate:         t.Installments.StartDate.String(),
		}
	}
	return d
}

func (d transactionDoc) toCore() (core.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", d.ID, err)
	}
	date, err := parseOptionalDate(d.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	t := core.Transaction{
		ID:            d.ID,
		Type:          core.TransactionType(d.Type),
		Amount:        amount,
		Date:          date,
		Description:   d.Description,
		CategoryID:    d.CategoryID,
		PaymentMethod: core.PaymentMethod(d.PaymentMethod),
		IsInstallment: d.IsInstallment,
		IsRecurrent:   d.IsRecurrent,
		RecurrenceOf:  d.RecurrenceOf,
	}
	if d.Installments != nil {
		start, err := parseOptionalDate(d.Installments.StartDate)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s start date: %w", d.ID, err)
		}
		t.Installments = &core.InstallmentDetails{
			TotalInstallments: d.Installments.TotalInstallments,
			PaidInstallments:  d.Installments.PaidInstallments,
			StartDate:         start,
		}
	}
	return t, nil
}

func fromProduct(p core.Product) productDoc {
	return productDoc{ID: p.ID, Name: p.Name, CategoryID: p.CategoryID, Unit: string(p.Unit)}
}

func (d productDoc) toCore() core.Product {
	return core.Product{ID: d.ID, Name: d.Name, CategoryID: d.CategoryID, Unit: core.ProductUnit(d.Unit)}
}

func fromList(l core.ShoppingList) listDoc {
	d := listDoc{
		ID:        l.ID,
		Name:      l.Name,
		CreatedAt: l.CreatedAt.String(),
		Status:    string(l.Status),
		Items:     make([]itemDoc, 0, len(l.Items)),
	}
	if l.CompletedAt != nil {
		d.CompletedAt = l.CompletedAt.String()
	}
	if l.TotalAmount != nil {
		d.TotalAmount = l.TotalAmount.String()
	}
	for _, it := range l.Items {
		d.Items = append(d.Items, itemDoc{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity.String(),
			Price:      it.Price.String(),
			Checked:    it.Checked,
			CategoryID: it.CategoryID,
			Unit:       string(it.Unit),
		})
	}
	return d
}

func (d listDoc) toCore() (core.ShoppingList, error) {
	created, err := parseOptionalDate(d.CreatedAt)
	if err != nil {
		return core.ShoppingList{}, fmt.Errorf("list %s: %w", d.ID, err)
	}
	l := core.ShoppingList{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: created,
		Status:    core.ListStatus(d.Status),
		Items:     make([]core.CartItem, 0, len(d.Items)),
	}
	if d.CompletedAt != "" {
		completed, err := parseOptionalDate(d.CompletedAt)
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("list %s: %w", d.ID, err)
		}
		l.CompletedAt = &completed
	}
	if d.TotalAmount != "" {
		total, err := decimal.NewFromString(d.TotalAmount)
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("list %s total: %w", d.ID, err)
		}
		l.TotalAmount = &total
	}
	for _, it := range d.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("item %s quantity: %w", it.ID, err)
		}
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("item %s price: %w", it.ID, err)
		}
		l.Items = append(l.Items, core.CartItem{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   qty,
			Price:      price,
			Checked:    it.Checked,
			CategoryID: it.CategoryID,
			Unit:       core.ProductUnit(it.Unit),
		})
	}
	return l, nil
}

func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
