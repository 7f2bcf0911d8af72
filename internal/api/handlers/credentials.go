// Package handlers contains the HydroSnap HTTP handlers. Each handler
// depends on narrow interfaces defined here so tests can substitute fakes.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hydrosnap/internal/core"
	"hydrosnap/internal/credential"
	"hydrosnap/internal/types"
)

// CredentialValidator decodes and validates a scanned credential.
// *readings.Service satisfies it.
type CredentialValidator interface {
	Validate(ctx context.Context, token string, position types.GeoPoint) (*credential.Acceptance, error)
}

// ValidateCredentialRequest is the body of POST /v1/credentials/validate.
type ValidateCredentialRequest struct {
	Token    string         `json:"token" validate:"required"`
	Position types.GeoPoint `json:"position"`
}

// SiteInfo is the site block of a validation response.
type SiteInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// GeofenceInfo describes the fence the device was checked against.
type GeofenceInfo struct {
	Center         types.GeoPoint `json:"center"`
	RadiusMeters   float64        `json:"radius_m"`
	DistanceMeters float64        `json:"distance_m"`
}

// ValidationResponse is returned for an accepted credential.
type ValidationResponse struct {
	Site             SiteInfo     `json:"site"`
	Levels           types.Levels `json:"levels"`
	Geofence         GeofenceInfo `json:"geofence"`
	ValidatedAt      time.Time    `json:"validated_at"`
	GeneratedAt      time.Time    `json:"generated_at"`
	ExpiresAt        time.Time    `json:"expires_at"`
	IntegrityWarning bool         `json:"integrity_warning"`
}

// CredentialHandler serves credential validation.
type CredentialHandler struct {
	validator *core.Validator
	service   CredentialValidator
	clock     types.Clock
	logger    *slog.Logger
	scanLimit func(http.Handler) http.Handler
}

// NewCredentialHandler creates a CredentialHandler. scanLimit wraps the
// scan endpoint and may be nil.
func NewCredentialHandler(service CredentialValidator, v *core.Validator, clock types.Clock, l *slog.Logger, scanLimit func(http.Handler) http.Handler) *CredentialHandler {
	if l == nil {
		l = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &CredentialHandler{validator: v, service: service, clock: clock, logger: l, scanLimit: scanLimit}
}

// RegisterRoutes mounts the credential routes.
func (h *CredentialHandler) RegisterRoutes(r chi.Router) {
	r.Route("/credentials", func(r chi.Router) {
		if h.scanLimit != nil {
			r.Use(h.scanLimit)
		}
		r.Post("/validate", h.Validate)
	})
}

// Validate handles POST /v1/credentials/validate.
func (h *CredentialHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCredentialRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	acc, err := h.service.Validate(r.Context(), req.Token, req.Position)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	p := acc.Payload
	if p.IntegrityWarning {
		h.logger.WarnContext(r.Context(), "credential accepted with integrity warning", "site_id", p.SiteID)
	}

	core.Data(w, r, http.StatusOK, ValidationResponse{
		Site:   SiteInfo{ID: p.SiteID, Name: p.Name, Location: p.Location},
		Levels: p.Levels,
		Geofence: GeofenceInfo{
			Center:         p.Coordinates,
			RadiusMeters:   p.GeofenceRadiusMeters,
			DistanceMeters: acc.DistanceMeters,
		},
		ValidatedAt:      h.clock.Now(),
		GeneratedAt:      p.GeneratedAt,
		ExpiresAt:        p.ExpiresAt,
		IntegrityWarning: p.IntegrityWarning,
	})
}
