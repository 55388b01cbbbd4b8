package budget

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/discount"
	"github.com/noah-isme/backend-quotes/internal/notify"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/pricing"
)

// Store is the persistence contract used by Service.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Budget, error)
	List(ctx context.Context, filter Filter) ([]Budget, int, error)
	Create(ctx context.Context, b Budget) (Budget, error)
	Update(ctx context.Context, b Budget) (Budget, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (time.Time, error)
	FetchProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	FetchClients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Client, error)
	ListProducts(ctx context.Context, search string, limit int) ([]Product, error)
	ListClients(ctx context.Context, search string, limit int) ([]Client, error)
	FetchPaymentOptions(ctx context.Context) (PaymentOptions, error)
	Role(ctx context.Context, userID string) (string, error)
}

// ServiceConfig wires the Service dependencies.
type ServiceConfig struct {
	Store    Store
	Policies *discount.Resolver
	Logger   zerolog.Logger
	Notifier notify.Notifier
	Now      func() time.Time
}

// Service implements budget use cases on top of the store and the discount policy.
type Service struct {
	store    Store
	policies *discount.Resolver
	logger   zerolog.Logger
	notifier notify.Notifier
	now      func() time.Time
	outage   atomic.Bool
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	policies := cfg.Policies
	if policies == nil {
		policies = discount.NewResolver(nil)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		policies: policies,
		logger:   cfg.Logger,
		notifier: notifier,
		now:      now,
	}
}

// Policy resolves the discount policy of userID. Lookup failures yield the read-only policy.
func (s *Service) Policy(ctx context.Context, userID string) discount.Policy {
	policy, err := s.policies.ForUser(ctx, s.store, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("discount policy lookup failed; using read-only policy")
	}
	return policy
}

// Get loads a budget.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Budget, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of budgets.
func (s *Service) List(ctx context.Context, filter Filter) ([]Budget, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, &ValidationError{Fields: []FieldError{{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}}}
	}
	return s.store.List(ctx, filter)
}

// Create validates and stores a new budget owned by userID. New budgets start in processing.
func (s *Service) Create(ctx context.Context, userID string, b Budget) (Budget, error) {
	b.ID = uuid.Nil
	b.Status = StatusProcessing
	b.CreatedBy = userID
	b.fillOffsets(Budget{})
	if err := s.validate(ctx, userID, b); err != nil {
		return Budget{}, err
	}
	created, err := s.store.Create(ctx, b)
	if err != nil {
		return Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.logger.Info().Str("budget_id", created.ID.String()).Int("items", len(created.Items)).Msg("budget created")
	return created, nil
}

// Update replaces the editable fields and the whole item list of an existing budget.
func (s *Service) Update(ctx context.Context, userID string, b Budget) (Budget, error) {
	current, err := s.store.Get(ctx, b.ID)
	if err != nil {
		return Budget{}, err
	}
	if current.Status == StatusApproved {
		return Budget{}, ErrApproved
	}
	b.Status = current.Status
	b.CreatedBy = current.CreatedBy
	b.CreatedAt = current.CreatedAt
	b.fillOffsets(current)
	if err := s.validate(ctx, userID, b); err != nil {
		return Budget{}, err
	}
	updated, err := s.store.Update(ctx, b)
	if err != nil {
		return Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

// ChangeStatus advances the lifecycle of a budget by one step.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, next Status) (Budget, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	if err := current.Status.Transition(next); err != nil {
		return Budget{}, err
	}
	updatedAt, err := s.store.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		return Budget{}, err
	}
	current.Status = next
	current.UpdatedAt = updatedAt
	s.logger.Info().Str("budget_id", id.String()).Str("status", string(next)).Msg("budget status changed")
	return current, nil
}

// PreviewResult is the priced view of an unsaved draft.
type PreviewResult struct {
	Summary  pricing.Summary `json:"summary"`
	DueDates DueDates        `json:"dueDates"`
	Problems []FieldError    `json:"problems"`
}

// Preview prices a draft without storing it. Validation problems are reported alongside
// the figures instead of failing the call.
func (s *Service) Preview(ctx context.Context, userID string, b Budget) PreviewResult {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	b.fillOffsets(Budget{})
	result := PreviewResult{Summary: b.Summary(), DueDates: b.DueDates(), Problems: []FieldError{}}
	if err := b.Validate(s.Policy(ctx, userID)); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			result.Problems = verr.Fields
		}
	}
	return result
}

// DueDates returns the visible due dates of a stored budget.
func (s *Service) DueDates(ctx context.Context, id uuid.UUID) (DueDates, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return DueDates{}, err
	}
	return b.DueDates(), nil
}

// Quote loads a budget with its references resolved. Missing or unreadable references
// are left nil so the document can render placeholders.
func (s *Service) Quote(ctx context.Context, id uuid.UUID) (Quote, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{Budget: b, Summary: b.Summary(), Products: map[uuid.UUID]Product{}}

	if b.ClientID != nil {
		clients, err := s.store.FetchClients(ctx, []uuid.UUID{*b.ClientID})
		if err != nil {
			s.logger.Warn().Err(err).Str("budget_id", id.String()).Msg("client lookup failed")
		} else if c, ok := clients[*b.ClientID]; ok {
			q.Client = &c
		}
	}

	ids := make([]uuid.UUID, 0, len(b.Items))
	seen := make(map[uuid.UUID]struct{}, len(b.Items))
	for _, it := range b.Items {
		if it.ProductID == nil {
			continue
		}
		if _, ok := seen[*it.ProductID]; ok {
			continue
		}
		seen[*it.ProductID] = struct{}{}
		ids = append(ids, *it.ProductID)
	}
	if products, err := s.store.FetchProducts(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Str("budget_id", id.String()).Msg("product lookup failed")
	} else {
		q.Products = products
	}

	opts, err := s.store.FetchPaymentOptions(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("budget_id", id.String()).Msg("payment option lookup failed")
		return q, nil
	}
	q.PaymentMethod = findOption(opts.Methods, b.PaymentMethodID)
	q.PaymentType = findOption(opts.Types, b.PaymentTypeID)
	q.ShippingOption = findOption(opts.Shipping, b.ShippingOptionID)
	return q, nil
}

func findOption(options []Option, id *uuid.UUID) *Option {
	if id == nil {
		return nil
	}
	for i := range options {
		if options[i].ID == *id {
			o := options[i]
			return &o
		}
	}
	return nil
}

// Products lists selectable products. Store failures yield an empty list.
func (s *Service) Products(ctx context.Context, search string, limit int) []Product {
	rows, err := s.store.ListProducts(ctx, search, limit)
	if err != nil {
		s.storeDown(ctx, "products", err)
		return []Product{}
	}
	s.outage.Store(false)
	return rows
}

// Clients lists selectable clients. Store failures yield an empty list.
func (s *Service) Clients(ctx context.Context, search string, limit int) []Client {
	rows, err := s.store.ListClients(ctx, search, limit)
	if err != nil {
		s.storeDown(ctx, "clients", err)
		return []Client{}
	}
	s.outage.Store(false)
	return rows
}

// PaymentOptions lists payment methods, types and shipping options. Store failures yield
// empty lists.
func (s *Service) PaymentOptions(ctx context.Context) PaymentOptions {
	opts, err := s.store.FetchPaymentOptions(ctx)
	if err != nil {
		s.storeDown(ctx, "payment options", err)
		return PaymentOptions{Methods: []Option{}, Types: []Option{}, Shipping: []Option{}}
	}
	s.outage.Store(false)
	return opts
}

// storeDown logs every failure and notifies once per outage.
func (s *Service) storeDown(ctx context.Context, what string, err error) {
	s.logger.Warn().Err(err).Str("collection", what).Msg("record store unavailable; returning empty list")
	if !s.outage.CompareAndSwap(false, true) {
		return
	}
	if nerr := s.notifier.Notify(ctx, notify.LevelWarning, "record store unavailable while loading "+what); nerr != nil {
		s.logger.Warn().Err(nerr).Msg("notify failed")
	}
}

func (s *Service) validate(ctx context.Context, userID string, b Budget) error {
	err := b.Validate(s.Policy(ctx, userID))
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) && obs.DiscountRejectionsTotal != nil {
		for _, f := range verr.Fields {
			if f.Discount != nil {
				obs.DiscountRejectionsTotal.WithLabelValues(f.Discount.Scope).Inc()
			}
		}
	}
	return err
}
