package budget

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/pricing"
	"github.com/noah-isme/backend-quotes/internal/schedule"
)

const maxBodyBytes = 1 << 20

// Handler exposes the budget endpoints.
type Handler struct {
	service  *Service
	currency string
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Currency string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, currency: cfg.Currency}
}

type itemPayload struct {
	ProductID   string           `json:"productId" validate:"required,uuid"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	DiscountPct *decimal.Decimal `json:"discountPercentage"`
	ProductCode string           `json:"productCode" validate:"max=64"`
}

type budgetPayload struct {
	ClientID           string          `json:"clientId" validate:"omitempty,uuid"`
	Notes              string          `json:"notes" validate:"max=4000"`
	DiscountPct        decimal.Decimal `json:"discountPercentage"`
	InvoicePct         decimal.Decimal `json:"invoicePercentage"`
	PaymentMethodID    string          `json:"paymentMethodId" validate:"omitempty,uuid"`
	PaymentTypeID      string          `json:"paymentTypeId" validate:"omitempty,uuid"`
	ShippingOptionID   string          `json:"shippingOptionId" validate:"omitempty,uuid"`
	ShippingCost       decimal.Decimal `json:"shippingCost"`
	LocalDeliveryInfo  string          `json:"localDeliveryInfo" validate:"max=500"`
	Installments       int             `json:"installments"`
	CheckInstallments  int             `json:"checkInstallments"`
	CheckDueDates      []int           `json:"checkDueDates"`
	BoletoInstallments int             `json:"boletoInstallments"`
	BoletoDueDates     []int           `json:"boletoDueDates"`
	DestinationCEP     string          `json:"destinationCep" validate:"max=9"`
	Items              []itemPayload   `json:"items" validate:"dive"`
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=processing awaiting_approval approved"`
}

// toBudget converts the payload. A missing item discount is seeded from the general discount.
// Omitted due-date offsets stay nil so the service can fill them.
func (p budgetPayload) toBudget() Budget {
	b := Budget{
		ClientID:           optionalUUID(p.ClientID),
		Notes:              p.Notes,
		DiscountPct:        p.DiscountPct,
		InvoicePct:         p.InvoicePct,
		PaymentMethodID:    optionalUUID(p.PaymentMethodID),
		PaymentTypeID:      optionalUUID(p.PaymentTypeID),
		ShippingOptionID:   optionalUUID(p.ShippingOptionID),
		ShippingCost:       p.ShippingCost,
		LocalDeliveryInfo:  strings.TrimSpace(p.LocalDeliveryInfo),
		Installments:       p.Installments,
		CheckInstallments:  p.CheckInstallments,
		CheckDueDates:      p.CheckDueDates,
		BoletoInstallments: p.BoletoInstallments,
		BoletoDueDates:     p.BoletoDueDates,
		DestinationCEP:     strings.TrimSpace(p.DestinationCEP),
	}
	b.Items = make([]Item, 0, len(p.Items))
	for _, ip := range p.Items {
		pid := uuid.MustParse(ip.ProductID)
		it := b.NewItem(pid, ip.Quantity, ip.UnitPrice)
		if ip.DiscountPct != nil {
			it.DiscountPct = *ip.DiscountPct
		}
		it.ProductCode = strings.TrimSpace(ip.ProductCode)
		b.Items = append(b.Items, it)
	}
	return b
}

func optionalUUID(raw string) *uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

type summaryView struct {
	Subtotal          string `json:"subtotal"`
	TotalWithDiscount string `json:"totalWithDiscount"`
	DiscountAmount    string `json:"discountAmount"`
	RealDiscountPct   string `json:"realDiscountPercentage"`
	Shipping          string `json:"shipping"`
	InvoicePct        string `json:"invoicePercentage"`
	InvoiceAmount     string `json:"invoiceAmount"`
	GrandTotal        string `json:"grandTotal"`
	GrandTotalDisplay string `json:"grandTotalDisplay"`
}

type lineView struct {
	ItemID string `json:"itemId,omitempty"`
	Gross  string `json:"gross"`
	Total  string `json:"total"`
}

type dueDatesView struct {
	Anchor        string   `json:"anchor"`
	Check         []string `json:"check"`
	Boleto        []string `json:"boleto"`
	CheckDisplay  string   `json:"checkDisplay"`
	BoletoDisplay string   `json:"boletoDisplay"`
}

type budgetView struct {
	Budget
	Lines    []lineView   `json:"lines"`
	Summary  summaryView  `json:"summary"`
	DueDates dueDatesView `json:"dueDates"`
}

func (h *Handler) summary(s pricing.Summary) summaryView {
	return summaryView{
		Subtotal:          s.Subtotal.StringFixed(2),
		TotalWithDiscount: s.TotalWithDiscount.StringFixed(2),
		DiscountAmount:    s.DiscountAmount.StringFixed(2),
		RealDiscountPct:   s.RealDiscountPct.StringFixed(2),
		Shipping:          s.Shipping.StringFixed(2),
		InvoicePct:        s.InvoicePct.StringFixed(2),
		InvoiceAmount:     s.InvoiceAmount.StringFixed(2),
		GrandTotal:        s.GrandTotal.StringFixed(2),
		GrandTotalDisplay: pricing.FormatMoney(s.GrandTotal, h.currency),
	}
}

func lines(b Budget, s pricing.Summary) []lineView {
	out := make([]lineView, len(s.Lines))
	for i, l := range s.Lines {
		v := lineView{Gross: l.Gross.StringFixed(2), Total: l.Total.StringFixed(2)}
		if i < len(b.Items) && b.Items[i].ID != uuid.Nil {
			v.ItemID = b.Items[i].ID.String()
		}
		out[i] = v
	}
	return out
}

func dueDates(d DueDates) dueDatesView {
	return dueDatesView{
		Anchor:        d.Anchor.Format(time.DateOnly),
		Check:         isoDates(d.Check),
		Boleto:        isoDates(d.Boleto),
		CheckDisplay:  schedule.Join(d.Check, schedule.DateLayout),
		BoletoDisplay: schedule.Join(d.Boleto, schedule.DateLayout),
	}
}

func isoDates(in []time.Time) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = t.Format(time.DateOnly)
	}
	return out
}

func (h *Handler) view(b Budget) budgetView {
	s := b.Summary()
	return budgetView{Budget: b, Lines: lines(b, s), Summary: h.summary(s), DueDates: dueDates(b.DueDates())}
}

// List handles GET /api/v1/budgets.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	filter := Filter{Status: Status(strings.TrimSpace(r.URL.Query().Get("status"))), Page: page, Limit: perPage}
	if raw := r.URL.Query().Get("clientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "clientId must be a UUID", nil)
			return
		}
		filter.ClientID = &id
	}
	rows, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]budgetView, len(rows))
	for i, b := range rows {
		views[i] = h.view(b)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.NewPagination(filter.Page, filter.Limit, total),
	})
}

// Get handles GET /api/v1/budgets/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(b)})
}

// Create handles POST /api/v1/budgets.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload budgetPayload
	if err := common.DecodeJSON(w, r, &payload, maxBodyBytes); err != nil {
		common.WriteError(w, err)
		return
	}
	userID, _ := common.UserID(r.Context())
	b, err := h.service.Create(r.Context(), userID, payload.toBudget())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.view(b)})
}

// Update handles PUT /api/v1/budgets/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	var payload budgetPayload
	if err := common.DecodeJSON(w, r, &payload, maxBodyBytes); err != nil {
		common.WriteError(w, err)
		return
	}
	userID, _ := common.UserID(r.Context())
	b := payload.toBudget()
	b.ID = id
	updated, err := h.service.Update(r.Context(), userID, b)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(updated)})
}

// ChangeStatus handles PATCH /api/v1/budgets/{id}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	var payload statusPayload
	if err := common.DecodeJSON(w, r, &payload, 4<<10); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.service.ChangeStatus(r.Context(), id, Status(payload.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(b)})
}

// Preview handles POST /api/v1/budgets/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var payload budgetPayload
	if err := common.DecodeJSON(w, r, &payload, maxBodyBytes); err != nil {
		common.WriteError(w, err)
		return
	}
	userID, _ := common.UserID(r.Context())
	draft := payload.toBudget()
	result := h.service.Preview(r.Context(), userID, draft)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"lines":    lines(draft, result.Summary),
		"summary":  h.summary(result.Summary),
		"dueDates": dueDates(result.DueDates),
		"problems": result.Problems,
	}})
}

// DueDates handles GET /api/v1/budgets/{id}/due-dates.
func (h *Handler) DueDates(w http.ResponseWriter, r *http.Request) {
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	d, err := h.service.DueDates(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dueDates(d)})
}

// Policy handles GET /api/v1/discount-policy.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Policy(r.Context(), userID)})
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	limit := common.QueryLimit(r, 50, 200)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Products(r.Context(), r.URL.Query().Get("q"), limit)})
}

// Clients handles GET /api/v1/clients.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	limit := common.QueryLimit(r, 50, 200)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Clients(r.Context(), r.URL.Query().Get("q"), limit)})
}

// PaymentOptions handles GET /api/v1/payment-options.
func (h *Handler) PaymentOptions(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.PaymentOptions(r.Context())})
}

func budgetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "budget id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		common.WriteError(w, common.NewValidationError("budget rejected", verr.Fields))
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NewNotFound("budget"))
	case errors.Is(err, ErrInvalidTransition):
		common.WriteError(w, common.NewConflict("INVALID_TRANSITION", err))
	case errors.Is(err, ErrApproved):
		common.WriteError(w, common.NewConflict("BUDGET_APPROVED", err))
	default:
		common.WriteError(w, err)
	}
}
