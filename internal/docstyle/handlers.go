package docstyle

import (
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/backend-quotes/internal/common"
)

const maxDescriptorBytes = 256 << 10

// Handler exposes the document style settings endpoints.
type Handler struct {
	resolver *Resolver
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Get handles GET /api/v1/settings/document-style.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "style resolver not configured", nil)
		return
	}
	persisted, err := h.resolver.Persisted(r.Context())
	if err != nil {
		common.WriteError(w, common.NewAppError("STYLE_UNAVAILABLE", "document style could not be loaded", http.StatusServiceUnavailable, err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"resolved":  h.resolver.Resolve(r.Context()),
			"persisted": persisted,
		},
	})
}

// Put handles PUT /api/v1/settings/document-style with a partial descriptor body.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "style resolver not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDescriptorBytes))
	if err != nil {
		common.WriteError(w, common.NewAppError("INVALID_BODY", "could not read request body", http.StatusBadRequest, err))
		return
	}
	cfg, err := h.resolver.Save(r.Context(), body)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			common.WriteError(w, common.NewValidationError(err.Error(), nil))
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
}
