package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hydrosnap/internal/core"
	"hydrosnap/internal/readings"
	"hydrosnap/internal/types"
)

// ReadingSubmitter runs the submission pipeline. *readings.Service
// satisfies it.
type ReadingSubmitter interface {
	Submit(ctx context.Context, req readings.SubmitRequest) (*readings.SubmitResult, error)
}

// SubmitReadingRequest is the body of POST /v1/readings. Level is a pointer
// so that a missing level is distinguishable from zero.
type SubmitReadingRequest struct {
	Token    string         `json:"token" validate:"required"`
	Position types.GeoPoint `json:"position"`
	UserID   string         `json:"user_id" validate:"required"`
	Level    *float64       `json:"level" validate:"required"`
}

// ReadingHandler serves reading submission.
type ReadingHandler struct {
	validator *core.Validator
	service   ReadingSubmitter
	logger    *slog.Logger
	scanLimit func(http.Handler) http.Handler
}

// NewReadingHandler creates a ReadingHandler. scanLimit may be nil.
func NewReadingHandler(service ReadingSubmitter, v *core.Validator, l *slog.Logger, scanLimit func(http.Handler) http.Handler) *ReadingHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ReadingHandler{validator: v, service: service, logger: l, scanLimit: scanLimit}
}

// RegisterRoutes mounts the reading routes.
func (h *ReadingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/readings", func(r chi.Router) {
		if h.scanLimit != nil {
			r.Use(h.scanLimit)
		}
		r.Post("/", h.Submit)
	})
}

// Submit handles POST /v1/readings. It answers 201 with the stored reading,
// the site's new status and the alert raised, if any.
func (h *ReadingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitReadingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.Submit(r.Context(), readings.SubmitRequest{
		Token:    req.Token,
		Position: req.Position,
		UserID:   req.UserID,
		Level:    *req.Level,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if res.Alert != nil {
		h.logger.InfoContext(r.Context(), "reading raised alert",
			"reading_id", res.Reading.ID,
			"alert_id", res.Alert.ID,
			"alert_type", string(res.Alert.AlertType),
		)
	}
	core.Data(w, r, http.StatusCreated, res)
}
