package budget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/discount"
	"github.com/noah-isme/backend-quotes/internal/notify"
)

type memoryStore struct {
	mu       sync.Mutex
	budgets  map[uuid.UUID]Budget
	products map[uuid.UUID]Product
	clients  map[uuid.UUID]Client
	options  PaymentOptions
	roles    map[string]string
	down     error
	// beforeUpdate runs ahead of Update to simulate a concurrent writer.
	beforeUpdate func(m *memoryStore, id uuid.UUID)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		budgets:  map[uuid.UUID]Budget{},
		products: map[uuid.UUID]Product{},
		clients:  map[uuid.UUID]Client{},
		roles:    map[string]string{},
	}
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return Budget{}, ErrNotFound
	}
	return b, nil
}

func (m *memoryStore) List(_ context.Context, filter Filter) ([]Budget, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Budget{}
	for _, b := range m.budgets {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memoryStore) Create(_ context.Context, b Budget) (Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	b.CreatedAt = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt
	m.budgets[b.ID] = b
	return b, nil
}

func (m *memoryStore) Update(_ context.Context, b Budget) (Budget, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(m, b.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.budgets[b.ID]
	if !ok {
		return Budget{}, ErrNotFound
	}
	if stored.Status == StatusApproved {
		return Budget{}, ErrApproved
	}
	m.budgets[b.ID] = b
	return b, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok || b.Status != from {
		return time.Time{}, ErrInvalidTransition
	}
	b.Status = to
	m.budgets[id] = b
	return time.Now(), nil
}

func (m *memoryStore) FetchProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := map[uuid.UUID]Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memoryStore) FetchClients(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Client, error) {
	out := map[uuid.UUID]Client{}
	for _, id := range ids {
		if c, ok := m.clients[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *memoryStore) ListProducts(context.Context, string, int) ([]Product, error) {
	if m.down != nil {
		return nil, m.down
	}
	out := []Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) ListClients(context.Context, string, int) ([]Client, error) {
	if m.down != nil {
		return nil, m.down
	}
	return []Client{}, nil
}

func (m *memoryStore) FetchPaymentOptions(context.Context) (PaymentOptions, error) {
	if m.down != nil {
		return PaymentOptions{}, m.down
	}
	return m.options, nil
}

func (m *memoryStore) Role(_ context.Context, userID string) (string, error) {
	return m.roles[userID], nil
}

type countingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (c *countingNotifier) Notify(_ context.Context, _ notify.Level, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func newTestService(store *memoryStore, n notify.Notifier) *Service {
	store.roles["seller-1"] = "seller"
	store.roles["admin-1"] = "admin"
	return NewService(ServiceConfig{
		Store:    store,
		Policies: discount.NewResolver(nil),
		Logger:   zerolog.Nop(),
		Notifier: n,
		Now:      func() time.Time { return time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestServiceCreateStartsProcessing(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	b := validBudget()
	b.Status = StatusApproved
	created, err := svc.Create(context.Background(), "seller-1", b)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, created.Status)
	require.Equal(t, "seller-1", created.CreatedBy)
	require.NotEqual(t, uuid.Nil, created.ID)
}

func TestServiceCreateRejectsDiscountAboveRoleCeiling(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	b := validBudget()
	b.Items[0].DiscountPct = d("5.5")
	_, err := svc.Create(context.Background(), "seller-1", b)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, store.budgets)

	_, err = svc.Create(context.Background(), "admin-1", b)
	require.NoError(t, err)
}

func TestServicePolicyFailsClosed(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)
	p := svc.Policy(context.Background(), "nobody")
	require.False(t, p.CanEdit)
	p = svc.Policy(context.Background(), "")
	require.False(t, p.CanEdit)
}

func TestServiceUpdateAndStatusLifecycle(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "admin-1", validBudget())
	require.NoError(t, err)

	edit := created
	edit.Notes = "rush"
	edit.Status = StatusApproved
	updated, err := svc.Update(ctx, "admin-1", edit)
	require.NoError(t, err)
	require.Equal(t, "rush", updated.Notes)
	require.Equal(t, StatusProcessing, updated.Status)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.ChangeStatus(ctx, created.ID, StatusApproved)
	require.ErrorIs(t, err, ErrInvalidTransition)

	moved, err := svc.ChangeStatus(ctx, created.ID, StatusAwaitingApproval)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, moved.Status)
	_, err = svc.ChangeStatus(ctx, created.ID, StatusApproved)
	require.NoError(t, err)

	_, err = svc.Update(ctx, "admin-1", edit)
	require.ErrorIs(t, err, ErrApproved)

	_, err = svc.ChangeStatus(ctx, uuid.New(), StatusAwaitingApproval)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceUpdateLosesToConcurrentApproval(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "admin-1", validBudget())
	require.NoError(t, err)
	store.beforeUpdate = func(m *memoryStore, id uuid.UUID) {
		m.mu.Lock()
		defer m.mu.Unlock()
		b := m.budgets[id]
		b.Status = StatusApproved
		m.budgets[id] = b
	}

	edit := created
	edit.Notes = "late edit"
	_, err = svc.Update(ctx, "admin-1", edit)
	require.ErrorIs(t, err, ErrApproved)
	require.Empty(t, store.budgets[created.ID].Notes)
}

func TestServiceFillsOmittedOffsets(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	b := validBudget()
	b.CheckInstallments, b.CheckDueDates = 2, nil
	created, err := svc.Create(ctx, "admin-1", b)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, created.CheckDueDates)

	edit := created
	edit.CheckDueDates = []int{30, 60}
	created, err = svc.Update(ctx, "admin-1", edit)
	require.NoError(t, err)

	edit = created
	edit.CheckDueDates = nil
	kept, err := svc.Update(ctx, "admin-1", edit)
	require.NoError(t, err)
	require.Equal(t, []int{30, 60}, kept.CheckDueDates)

	edit = kept
	edit.CheckInstallments, edit.CheckDueDates = 3, nil
	resized, err := svc.Update(ctx, "admin-1", edit)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 0}, resized.CheckDueDates)

	edit = resized
	edit.BoletoInstallments, edit.BoletoDueDates = 1, []int{}
	_, err = svc.Update(ctx, "admin-1", edit)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "explicit offsets must match the count")
}

func TestServiceQuoteToleratesMissingReferences(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	b := validBudget()
	known := Product{ID: *b.Items[0].ProductID, Code: "P1", Name: "Widget", Price: d("10")}
	store.products[known.ID] = known
	b.Items = append(b.Items, b.NewItem(uuid.New(), 1, d("5")))
	store.options = PaymentOptions{Methods: []Option{{ID: *b.PaymentMethodID, Name: "Boleto"}}}

	created, err := svc.Create(ctx, "admin-1", b)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, q.Client)
	require.Equal(t, "", q.ClientName())
	require.Len(t, q.Products, 1)
	require.NotNil(t, q.PaymentMethod)
	require.Equal(t, "Boleto", q.PaymentMethod.Name)
	require.Nil(t, q.ShippingOption)
	require.True(t, q.Summary.GrandTotal.Equal(d("40")))
}

func TestServiceStoreOutageNotifiesOnce(t *testing.T) {
	store := newMemoryStore()
	store.down = errors.New("connection refused")
	n := &countingNotifier{}
	svc := newTestService(store, n)
	ctx := context.Background()

	require.Empty(t, svc.Products(ctx, "", 10))
	require.Empty(t, svc.Clients(ctx, "", 10))
	opts := svc.PaymentOptions(ctx)
	require.NotNil(t, opts.Methods)
	require.Len(t, n.messages, 1)

	store.down = nil
	svc.Products(ctx, "", 10)
	store.down = errors.New("again")
	svc.Products(ctx, "", 10)
	require.Len(t, n.messages, 2)
}

func TestServicePreviewReportsProblems(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)
	b := validBudget()
	b.CheckInstallments = 1
	b.CheckDueDates = []int{30}
	b.Items[0].DiscountPct = d("50")

	result := svc.Preview(context.Background(), "seller-1", b)
	require.Len(t, result.Problems, 1)
	require.True(t, result.Summary.TotalWithDiscount.Equal(d("10")))
	require.Len(t, result.DueDates.Check, 1)
	require.Equal(t, "2024-03-02", result.DueDates.Check[0].Format(time.DateOnly))
}

func newRouter(svc *Service, userID string) http.Handler {
	h := NewHandler(HandlerConfig{Service: svc, Currency: "R$"})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), userID)))
		})
	})
	r.Post("/budgets", h.Create)
	r.Get("/budgets/{id}", h.Get)
	r.Patch("/budgets/{id}/status", h.ChangeStatus)
	r.Get("/discount-policy", h.Policy)
	return r
}

func TestHandlerCreateSeedsItemDiscount(t *testing.T) {
	store := newMemoryStore()
	router := newRouter(newTestService(store, nil), "seller-1")

	body := map[string]any{
		"clientId":           uuid.NewString(),
		"paymentMethodId":    uuid.NewString(),
		"discountPercentage": "4",
		"shippingCost":       10,
		"items": []map[string]any{
			{"productId": uuid.NewString(), "quantity": 2, "unitPrice": "50"},
			{"productId": uuid.NewString(), "quantity": 1, "unitPrice": 100, "discountPercentage": 0},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/budgets", bytes.NewReader(raw)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Summary struct {
				Subtotal          string `json:"subtotal"`
				TotalWithDiscount string `json:"totalWithDiscount"`
				GrandTotal        string `json:"grandTotal"`
				GrandTotalDisplay string `json:"grandTotalDisplay"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "processing", resp.Data.Status)
	require.Equal(t, "200.00", resp.Data.Summary.Subtotal)
	require.Equal(t, "196.00", resp.Data.Summary.TotalWithDiscount)
	require.Equal(t, "206.00", resp.Data.Summary.GrandTotal)
	require.Equal(t, "R$ 206,00", resp.Data.Summary.GrandTotalDisplay)
}

func TestHandlerRejectsInvalidPayloads(t *testing.T) {
	router := newRouter(newTestService(newMemoryStore(), nil), "seller-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/budgets", bytes.NewBufferString(`{"items":[{"productId":"nope"}]}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "items[0].productId")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/budgets", bytes.NewBufferString(`{"discountPercentage":50,"items":[]}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "exceeds the maximum of 10%")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/budgets", bytes.NewBufferString(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/budgets/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerStatusTransitions(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	created, err := svc.Create(context.Background(), "admin-1", validBudget())
	require.NoError(t, err)
	router := newRouter(svc, "admin-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/budgets/"+created.ID.String()+"/status", bytes.NewBufferString(`{"status":"approved"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/budgets/"+created.ID.String()+"/status", bytes.NewBufferString(`{"status":"awaiting_approval"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/budgets/"+created.ID.String()+"/status", bytes.NewBufferString(`{"status":"archived"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discount-policy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"canEdit":true`)
}
