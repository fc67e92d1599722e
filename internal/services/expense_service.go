package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// EventPublisher announces collection changes. The AMQP client satisfies it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService implements the expense operations on top of an injected
// store. It keeps no state between calls besides its collaborators.
type ExpenseService struct {
	store     storage.Store
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithPublisher enables change events.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

// WithIDGenerator overrides how expense ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *ExpenseService) { s.newID = gen }
}

func NewExpenseService(store storage.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all expenses, newest date first, with their total.
func (s *ExpenseService) List(ctx context.Context) (core.ExpenseList, error) {
	expenses, err := s.store.List(ctx)
	if err != nil {
		return core.ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	logger(ctx).DebugContext(ctx, "Expenses listed",
		applog.FieldCount, len(expenses),
		applog.FieldOperation, applog.OpList)
	return core.ExpenseList{
		Expenses: expenses,
		Total:    core.Total(expenses),
	}, nil
}

// Create validates the input and stores one new expense. Validation
// failures are returned as *core.ValidationError.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.Expense(core.Today(s.now()))
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = s.newID()

	if err := s.store.Insert(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	fields := applog.NewFields().
		WithExpense(e.ID, e.Description, e.Amount, e.Category, e.Date).
		WithOperation(applog.OpCreate)
	logger(ctx).InfoContext(ctx, "Expense created", fields.ToSlice()...)

	s.publish(ctx, amqp.EventExpenseCreated, e.ID, e.Description)
	return e, nil
}

// DeleteByDescription removes at most one expense with this exact
// description and reports whether one was removed.
func (s *ExpenseService) DeleteByDescription(ctx context.Context, desc string) (bool, error) {
	deleted, err := s.store.DeleteByDescription(ctx, desc)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Delete by description",
		applog.FieldExpenseDesc, desc,
		applog.FieldDeleted, deleted,
		applog.FieldOperation, applog.OpDelete)
	if !deleted {
		return false, nil
	}
	s.publish(ctx, amqp.EventExpenseDeleted, "", desc)
	return true, nil
}

// DeleteByID removes the expense with the given id.
func (s *ExpenseService) DeleteByID(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense %s: %w", id, err)
	}
	logger(ctx).InfoContext(ctx, "Delete by id",
		applog.FieldExpenseID, id,
		applog.FieldDeleted, deleted,
		applog.FieldOperation, applog.OpDelete)
	if deleted {
		s.publish(ctx, amqp.EventExpenseDeleted, id, "")
	}
	return deleted, nil
}

// Stats returns the total amount per category.
func (s *ExpenseService) Stats(ctx context.Context) ([]core.CategoryTotal, error) {
	totals, err := s.store.CategoryTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	if totals == nil {
		totals = []core.CategoryTotal{}
	}
	return totals, nil
}

// Ping reports whether the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if s.store == nil {
		return errors.New("no store configured")
	}
	return s.store.Ping(ctx)
}

func (s *ExpenseService) publish(ctx context.Context, eventType, id, desc string) {
	if s.publisher == nil {
		return
	}
	// The store write already succeeded; a lost event must not fail the request.
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(eventType, id, desc)); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentAMQP).ErrorContext(ctx, "Failed to publish expense event",
			"event_type", eventType,
			applog.FieldExpenseID, id,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
	}
}

// logger returns the request-scoped logger from ctx, tagged for this service.
func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentExpense)
}

// Close closes both storage and publisher connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
