package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hydrosnap/internal/core"
	"hydrosnap/internal/types"
)

const (
	defaultAlertListLimit = 50
	maxAlertListLimit     = 200
)

// AlertStore is the read and acknowledge side of alert storage.
type AlertStore interface {
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*types.Alert, error)
	MarkRead(ctx context.Context, alertID, userID string) error
}

// MarkReadRequest is the body of POST /v1/alerts/{id}/read.
type MarkReadRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// AlertHandler serves a user's alert inbox.
type AlertHandler struct {
	store     AlertStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(store AlertStore, v *core.Validator, l *slog.Logger) *AlertHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AlertHandler{store: store, validator: v, logger: l}
}

// RegisterRoutes mounts the alert routes.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{id}/read", h.MarkRead)
	})
}

// List handles GET /v1/alerts?user_id=..&unread=true&limit=n, newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"user_id is required", nil, map[string]any{"field": "user_id"}))
		return
	}

	unreadOnly := false
	if raw := q.Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
				"unread must be a boolean", err, map[string]any{"field": "unread"}))
			return
		}
		unreadOnly = v
	}

	limit := defaultAlertListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAlertListLimit {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize,
				"limit must be between 1 and 200", err, map[string]any{"field": "limit"}))
			return
		}
		limit = n
	}

	alerts, err := h.store.ListForUser(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []*types.Alert{}
	}
	core.Data(w, r, http.StatusOK, alerts)
}

// MarkRead handles POST /v1/alerts/{id}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	alertID := chi.URLParam(r, "id")
	if err := h.store.MarkRead(r.Context(), alertID, req.UserID); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
