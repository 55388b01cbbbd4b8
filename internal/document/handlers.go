package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/common"
)

// ErrExportPending is returned by an Enqueuer when an identical export is already queued.
var ErrExportPending = errors.New("document: export already pending")

// QuoteSource loads quotes with their references resolved.
type QuoteSource interface {
	Quote(ctx context.Context, id uuid.UUID) (budget.Quote, error)
}

// Enqueuer schedules an asynchronous export and returns the job id.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, budgetID uuid.UUID, format Format, requestedBy string) (string, error)
}

// Handler exposes the document download and export job endpoints.
type Handler struct {
	quotes    QuoteSource
	assembler *Assembler
	jobs      Enqueuer
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Quotes    QuoteSource
	Assembler *Assembler
	Jobs      Enqueuer
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{quotes: cfg.Quotes, assembler: cfg.Assembler, jobs: cfg.Jobs}
}

// Download handles GET /api/v1/budgets/{id}/document and streams the artifact as an
// attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, format, ok := parseRequest(w, r)
	if !ok {
		return
	}
	q, err := h.quotes.Quote(r.Context(), id)
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	art, err := h.assembler.Assemble(r.Context(), q, format)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "RENDER_FAILED", "document could not be rendered", nil)
		return
	}
	delivery := HTTPDelivery{W: w, ContentType: art.ContentType, Pages: art.Pages}
	_ = delivery.Deliver(r.Context(), art.Data, art.Filename)
}

// Enqueue handles POST /api/v1/budgets/{id}/document/jobs.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "export queue not configured", nil)
		return
	}
	id, format, ok := parseRequest(w, r)
	if !ok {
		return
	}
	if _, err := h.quotes.Quote(r.Context(), id); err != nil {
		writeQuoteError(w, err)
		return
	}
	userID, _ := common.UserID(r.Context())
	jobID, err := h.jobs.EnqueueExport(r.Context(), id, format, userID)
	if errors.Is(err, ErrExportPending) {
		common.WriteError(w, common.NewConflict("EXPORT_PENDING", err))
		return
	}
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "export could not be scheduled", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{
		"jobId":    jobID,
		"budgetId": id.String(),
		"format":   format,
	}})
}

// Delivery hands a rendered artifact to its destination.
type Delivery interface {
	Deliver(ctx context.Context, data []byte, filename string) error
}

// HTTPDelivery delivers an artifact as an HTTP attachment response.
type HTTPDelivery struct {
	W           http.ResponseWriter
	ContentType string
	Pages       int
}

// Deliver writes the artifact with download headers.
func (d HTTPDelivery) Deliver(_ context.Context, data []byte, filename string) error {
	contentType := d.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d.W.Header().Set("Content-Type", contentType)
	d.W.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	d.W.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if d.Pages > 0 {
		d.W.Header().Set("X-Document-Pages", strconv.Itoa(d.Pages))
	}
	d.W.WriteHeader(http.StatusOK)
	_, err := d.W.Write(data)
	return err
}

func parseRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, Format, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "budget id must be a UUID", nil)
		return uuid.Nil, "", false
	}
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return uuid.Nil, "", false
	}
	return id, format, true
}

func writeQuoteError(w http.ResponseWriter, err error) {
	if errors.Is(err, budget.ErrNotFound) {
		common.WriteError(w, common.NewNotFound("budget"))
		return
	}
	common.WriteError(w, err)
}
