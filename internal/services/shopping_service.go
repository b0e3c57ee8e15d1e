package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/storage"
)

var (
	ErrShoppingCategoryInUse = fmt.Errorf("shopping category is referenced by products: %w", storage.ErrConflict)
	ErrListCompleted         = fmt.Errorf("shopping list already completed: %w", storage.ErrConflict)
	ErrProductNotFound       = fmt.Errorf("product: %w", storage.ErrNotFound)
	ErrItemNotFound          = fmt.Errorf("list item: %w", storage.ErrNotFound)
)

// ShoppingConfig sets how completed lists are booked as expenses.
type ShoppingConfig struct {
	CategoryID    string
	PaymentMethod core.PaymentMethod
}

// NewItem adds one product to a list. Zero quantity means one unit.
type NewItem struct {
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ItemPatch updates the fields that are set.
type ItemPatch struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Checked  *bool            `json:"checked"`
}

type ShoppingService struct {
	store   storage.ShoppingRepository
	finance *FinanceService
	cfg     ShoppingConfig
	now     func() time.Time

	// lists serializes read-modify-write cycles per list ID.
	lists keyedMutex
}

func NewShoppingService(store storage.ShoppingRepository, finance *FinanceService, cfg ShoppingConfig) *ShoppingService {
	return &ShoppingService{store: store, finance: finance, cfg: cfg, now: time.Now}
}

// today follows the finance service's time zone so a completed list is
// booked on the same day the views call today.
func (s *ShoppingService) today() core.Date {
	if s.finance == nil {
		return core.DateOf(s.now())
	}
	return s.finance.DateAt(s.now())
}

func byName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(name(items[i])) < strings.ToLower(name(items[j]))
	})
}

// Categories

func (s *ShoppingService) ListCategories(ctx context.Context) ([]core.ShoppingCategory, error) {
	categories, err := s.store.ListShoppingCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shopping categories: %w", err)
	}
	byName(categories, func(c core.ShoppingCategory) string { return c.Name })
	return categories, nil
}

func (s *ShoppingService) CreateCategory(ctx context.Context, c core.ShoppingCategory) (core.ShoppingCategory, error) {
	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.ShoppingCategory{}, err
	}
	if err := s.store.CreateShoppingCategory(ctx, c); err != nil {
		return core.ShoppingCategory{}, fmt.Errorf("create shopping category: %w", err)
	}
	return c, nil
}

func (s *ShoppingService) UpdateCategory(ctx context.Context, id string, c core.ShoppingCategory) (core.ShoppingCategory, error) {
	c.ID = id
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.ShoppingCategory{}, err
	}
	if err := s.store.UpdateShoppingCategory(ctx, c); err != nil {
		return core.ShoppingCategory{}, fmt.Errorf("update shopping category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a shopping category no product uses.
func (s *ShoppingService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.store.GetShoppingCategory(ctx, id); err != nil {
		return fmt.Errorf("get shopping category: %w", err)
	}
	n, err := s.store.CountProductsByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w (%d products)", ErrShoppingCategoryInUse, n)
	}
	if err := s.store.DeleteShoppingCategory(ctx, id); err != nil {
		return fmt.Errorf("delete shopping category: %w", err)
	}
	return nil
}

// Products

func (s *ShoppingService) ListProducts(ctx context.Context) ([]core.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	byName(products, func(p core.Product) string { return p.Name })
	return products, nil
}

func (s *ShoppingService) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.ID = uuid.NewString()
	if err := s.prepareProduct(ctx, &p); err != nil {
		return core.Product{}, err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *ShoppingService) UpdateProduct(ctx context.Context, id string, p core.Product) (core.Product, error) {
	p.ID = id
	if err := s.prepareProduct(ctx, &p); err != nil {
		return core.Product{}, err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *ShoppingService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *ShoppingService) prepareProduct(ctx context.Context, p *core.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.CategoryID = strings.TrimSpace(p.CategoryID)
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CategoryID == "" {
		return nil
	}
	_, err := s.store.GetShoppingCategory(ctx, p.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %q", core.ErrCategoryNotFound, p.CategoryID)
	}
	if err != nil {
		return fmt.Errorf("get shopping category: %w", err)
	}
	return nil
}

// GroupedProducts returns every category that has products, with its
// products. Groups and products are sorted by name.
func (s *ShoppingService) GroupedProducts(ctx context.Context) ([]core.ProductGroup, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]core.Product)
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p)
	}
	groups := make([]core.ProductGroup, 0, len(categories))
	for _, c := range categories {
		if len(byCategory[c.ID]) == 0 {
			continue
		}
		groups = append(groups, core.ProductGroup{Category: c, Products: byCategory[c.ID]})
	}
	return groups, nil
}

// Lists

// ListLists returns list summaries, pending lists first, then the most
// recently completed or created.
func (s *ShoppingService) ListLists(ctx context.Context) ([]core.ShoppingListSummary, error) {
	lists, err := s.store.ListShoppingLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	sort.SliceStable(lists, func(i, j int) bool {
		pi, pj := lists[i].Status == core.ListPending, lists[j].Status == core.ListPending
		if pi != pj {
			return pi
		}
		return lists[i].SortDate().After(lists[j].SortDate().Time)
	})
	out := make([]core.ShoppingListSummary, len(lists))
	for i, l := range lists {
		out[i] = l.Summary()
	}
	return out, nil
}

func (s *ShoppingService) GetList(ctx context.Context, id string) (core.ShoppingList, error) {
	l, err := s.store.GetShoppingList(ctx, id)
	if err != nil {
		return core.ShoppingList{}, fmt.Errorf("get shopping list: %w", err)
	}
	return l, nil
}

// CreateList starts a pending list with one unit of each known product.
// Unknown product IDs are skipped.
func (s *ShoppingService) CreateList(ctx context.Context, name string, productIDs []string) (core.ShoppingList, error) {
	l := core.ShoppingList{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: s.today(),
		Status:    core.ListPending,
		Items:     []core.CartItem{},
	}
	for _, id := range productIDs {
		p, err := s.store.GetProduct(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			slog.DebugContext(ctx, "Skipping unknown product", "product_id", id)
			continue
		}
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("get product: %w", err)
		}
		l.Items = append(l.Items, itemFor(p, decimal.NewFromInt(1), decimal.Zero))
	}
	if err := l.Validate(); err != nil {
		return core.ShoppingList{}, err
	}
	if err := s.store.CreateShoppingList(ctx, l); err != nil {
		return core.ShoppingList{}, fmt.Errorf("create shopping list: %w", err)
	}
	return l, nil
}

// ReplaceList overwrites the name and items of a pending list. Items
// without an ID get one.
func (s *ShoppingService) ReplaceList(ctx context.Context, id, name string, items []core.CartItem) (core.ShoppingList, error) {
	return s.modify(ctx, id, func(l *core.ShoppingList) error {
		l.Name = strings.TrimSpace(name)
		l.Items = make([]core.CartItem, 0, len(items))
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			l.Items = append(l.Items, item)
		}
		return nil
	})
}

// AddItems appends products to a pending list. Every product must exist.
func (s *ShoppingService) AddItems(ctx context.Context, listID string, items []NewItem) (core.ShoppingList, error) {
	added := make([]core.CartItem, 0, len(items))
	for _, item := range items {
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ShoppingList{}, fmt.Errorf("%w: %q", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return core.ShoppingList{}, fmt.Errorf("get product: %w", err)
		}
		qty := item.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		added = append(added, itemFor(p, qty, item.Price))
	}
	return s.modify(ctx, listID, func(l *core.ShoppingList) error {
		l.Items = append(l.Items, added...)
		return nil
	})
}

func (s *ShoppingService) UpdateItem(ctx context.Context, listID, itemID string, patch ItemPatch) (core.ShoppingList, error) {
	return s.modify(ctx, listID, func(l *core.ShoppingList) error {
		for i := range l.Items {
			if l.Items[i].ID != itemID {
				continue
			}
			if patch.Quantity != nil {
				l.Items[i].Quantity = *patch.Quantity
			}
			if patch.Price != nil {
				l.Items[i].Price = *patch.Price
			}
			if patch.Checked != nil {
				l.Items[i].Checked = *patch.Checked
			}
			return nil
		}
		return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	})
}

func (s *ShoppingService) DeleteItem(ctx context.Context, listID, itemID string) (core.ShoppingList, error) {
	return s.modify(ctx, listID, func(l *core.ShoppingList) error {
		for i := range l.Items {
			if l.Items[i].ID == itemID {
				l.Items = append(l.Items[:i], l.Items[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	})
}

func (s *ShoppingService) DeleteList(ctx context.Context, id string) error {
	if err := s.store.DeleteShoppingList(ctx, id); err != nil {
		return fmt.Errorf("delete shopping list: %w", err)
	}
	return nil
}

// CompleteList closes a pending list at today's date and books its total as
// an expense. A list with a zero total is closed without an expense.
func (s *ShoppingService) CompleteList(ctx context.Context, id string) (core.ShoppingList, *core.Transaction, error) {
	unlock := s.lists.Lock(id)
	defer unlock()

	l, err := s.GetList(ctx, id)
	if err != nil {
		return core.ShoppingList{}, nil, err
	}
	if l.Status == core.ListCompleted {
		return core.ShoppingList{}, nil, ErrListCompleted
	}

	today := s.today()
	total := l.Total()

	var expense *core.Transaction
	if total.IsPositive() {
		created, err := s.finance.CreateTransaction(ctx, core.Transaction{
			Type:          core.Expense,
			Amount:        total,
			Date:          today,
			Description:   "Compras: " + l.Name,
			CategoryID:    s.cfg.CategoryID,
			PaymentMethod: s.cfg.PaymentMethod,
		})
		if err != nil {
			return core.ShoppingList{}, nil, fmt.Errorf("book shopping expense: %w", err)
		}
		expense = &created
	}

	l.Status = core.ListCompleted
	l.CompletedAt = &today
	l.TotalAmount = &total
	if err := s.store.SaveShoppingList(ctx, l); err != nil {
		if expense != nil {
			if derr := s.finance.DeleteTransaction(ctx, expense.ID); derr != nil {
				slog.ErrorContext(ctx, "Failed to roll back shopping expense",
					"transaction_id", expense.ID, "error", derr)
			}
		}
		return core.ShoppingList{}, nil, fmt.Errorf("save shopping list: %w", err)
	}

	slog.InfoContext(ctx, "Shopping list completed",
		"list_id", l.ID,
		"total", total.StringFixed(2),
		"items", len(l.Items))
	return l, expense, nil
}

// modify loads a pending list, applies fn and saves the result.
func (s *ShoppingService) modify(ctx context.Context, id string, fn func(*core.ShoppingList) error) (core.ShoppingList, error) {
	unlock := s.lists.Lock(id)
	defer unlock()

	l, err := s.GetList(ctx, id)
	if err != nil {
		return core.ShoppingList{}, err
	}
	if l.Status == core.ListCompleted {
		return core.ShoppingList{}, ErrListCompleted
	}
	if err := fn(&l); err != nil {
		return core.ShoppingList{}, err
	}
	if err := l.Validate(); err != nil {
		return core.ShoppingList{}, err
	}
	if err := s.store.SaveShoppingList(ctx, l); err != nil {
		return core.ShoppingList{}, fmt.Errorf("save shopping list: %w", err)
	}
	return l, nil
}

func itemFor(p core.Product, quantity, price decimal.Decimal) core.CartItem {
	return core.CartItem{
		ID:         uuid.NewString(),
		ProductID:  p.ID,
		Name:       p.Name,
		Quantity:   quantity,
		Price:      price,
		CategoryID: p.CategoryID,
		Unit:       p.Unit,
	}
}
