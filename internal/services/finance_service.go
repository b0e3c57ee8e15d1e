// Package services orchestrates the repositories, the pure builders in
// internal/summary and the event publisher.
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
	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/storage"
	"financas/internal/summary"
)

var ErrCategoryInUse = fmt.Errorf("category is referenced by transactions: %w", storage.ErrConflict)

// EventPublisher announces committed transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, eventType amqp.EventType, transactionID string) error
}

// FinanceStore is the part of a Store the finance service needs.
type FinanceStore interface {
	storage.CategoryRepository
	storage.TransactionRepository
}

// FinanceService handles categories, transactions and the derived views.
// Mutations are saved first and announced afterwards; a failed announcement
// is logged and never fails the request.
type FinanceService struct {
	store     FinanceStore
	publisher EventPublisher
	views     *cache.Loader[core.MonthlyView]
	now       func() time.Time
	loc       *time.Location
}

// NewFinanceService wires the service. publisher and views may be nil, which
// disables events and view caching respectively.
func NewFinanceService(store FinanceStore, publisher EventPublisher, views *cache.Loader[core.MonthlyView]) *FinanceService {
	return &FinanceService{
		store:     store,
		publisher: publisher,
		views:     views,
		now:       time.Now,
		loc:       time.UTC,
	}
}

// SetLocation sets the time zone that decides which calendar day "today"
// is. It must be called before the service is shared.
func (s *FinanceService) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	s.loc = loc
}

// Location is the time zone set with SetLocation, UTC by default.
func (s *FinanceService) Location() *time.Location {
	return s.loc
}

// DateAt is the calendar day of t in the service's time zone.
func (s *FinanceService) DateAt(t time.Time) core.Date {
	return core.DateIn(t, s.loc)
}

// Today is the current calendar day in the service's time zone.
func (s *FinanceService) Today() core.Date {
	return s.DateAt(s.now())
}

// Categories

func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	})
	return categories, nil
}

func (s *FinanceService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidateViews()
	return c, nil
}

// DeleteCategory removes a category no transaction references.
func (s *FinanceService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	n, err := s.store.CountTransactionsByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w (%d transactions)", ErrCategoryInUse, n)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidateViews()
	return nil
}

// Transactions

func (s *FinanceService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *FinanceService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// CreateTransaction assigns a new ID to t, validates and stores it.
func (s *FinanceService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if err := s.prepare(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidateViews()
	s.publish(ctx, amqp.EventCreated, t.ID)
	return t, nil
}

// UpdateTransaction replaces the stored transaction id with t. The link of
// a recurring copy to its template is owned by the server and kept.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.ID = id
	t.RecurrenceOf = current.RecurrenceOf
	if err := s.prepare(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidateViews()
	s.publish(ctx, amqp.EventUpdated, t.ID)
	return t, nil
}

// DeleteTransaction removes a transaction, and with it the whole plan of an
// installment purchase.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidateViews()
	s.publish(ctx, amqp.EventDeleted, id)
	return nil
}

func (s *FinanceService) prepare(ctx context.Context, t *core.Transaction) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	category, err := s.store.GetCategory(ctx, t.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %q", core.ErrCategoryNotFound, t.CategoryID)
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category.Type != t.Type {
		return fmt.Errorf("%w: category %q is %s", core.ErrCategoryTypeMismatch, category.Name, category.Type)
	}
	return nil
}

// Summaries

// MonthlyView returns the entries of one month, served from the view cache
// when one is configured.
func (s *FinanceService) MonthlyView(ctx context.Context, year, month int) (core.MonthlyView, error) {
	if month < 1 || month > 12 {
		return core.MonthlyView{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	build := func(ctx context.Context) (core.MonthlyView, error) {
		txs, err := s.store.ListTransactions(ctx)
		if err != nil {
			return core.MonthlyView{}, fmt.Errorf("list transactions: %w", err)
		}
		return summary.BuildMonthlyView(year, month, txs)
	}
	if s.views == nil {
		return build(ctx)
	}
	return s.views.Load(ctx, fmt.Sprintf("%04d-%02d", year, month), build)
}

// InstallmentPlans summarizes every installment purchase as of today,
// keeping only the plans with the given status unless it is empty or "todos".
func (s *FinanceService) InstallmentPlans(ctx context.Context, status string) ([]core.InstallmentPlan, error) {
	if status != "" && status != summary.FilterAll && !core.PlanStatus(status).IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}

	var (
		txs        []core.Transaction
		categories []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load installment data: %w", err)
	}

	plans, err := summary.SummarizeInstallmentPlans(txs, categories, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	return summary.FilterPlans(plans, status), nil
}

// Dashboard computes the monthly view, every installment plan and the
// month's expenses per category concurrently.
func (s *FinanceService) Dashboard(ctx context.Context, year, month int) (core.Dashboard, error) {
	var (
		dash       core.Dashboard
		categories []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash.MonthlyView, err = s.MonthlyView(gctx, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		dash.InstallmentPlans, err = s.InstallmentPlans(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	dash.ByCategory = summary.ExpensesByCategory(dash.MonthlyView, categories)
	return dash, nil
}

// HandleTransactionEvent drops the cached views when another process
// reports a committed change. It matches amqp.EventHandler.
func (s *FinanceService) HandleTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	s.invalidateViews()
	slog.DebugContext(ctx, "Invalidated cached views",
		"type", string(event.Type),
		"transaction_id", event.TransactionID,
		"sequence", event.Sequence)
	return nil
}

func (s *FinanceService) invalidateViews() {
	if s.views != nil {
		s.views.Invalidate()
	}
}

func (s *FinanceService) publish(ctx context.Context, eventType amqp.EventType, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping transaction event",
			"type", string(eventType), "transaction_id", id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, eventType, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"type", string(eventType),
			"transaction_id", id,
			"error", err)
	}
}
