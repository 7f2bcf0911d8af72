// Package readings accepts field water-level submissions. A submission is
// only stored after its site credential decodes, validates against the
// device position, and names a site that still exists.
package readings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/credential"
	"hydrosnap/internal/types"
)

// Decoder turns a scanned token into a credential payload.
type Decoder interface {
	Decode(token string) (*types.SiteCredentialPayload, error)
}

// ReadingStore persists readings.
type ReadingStore interface {
	Create(ctx context.Context, rd *types.WaterLevelReading) error
}

// Processor evaluates a stored reading. *alerts.Engine satisfies it.
type Processor interface {
	ProcessReading(ctx context.Context, ev alerts.ReadingEvent, now time.Time) (*types.Alert, types.SiteStatus, error)
}

// RejectionRecorder counts rejected credentials.
type RejectionRecorder interface {
	RecordCredentialRejected(ctx context.Context, code types.ErrorCode)
}

// SubmitRequest is one field submission.
type SubmitRequest struct {
	Token    string
	Position types.GeoPoint
	UserID   string
	Level    float64
}

// SubmitResult is what a successful submission produced. Alert is nil when
// the reading raised nothing new today.
type SubmitResult struct {
	Reading          *types.WaterLevelReading `json:"reading"`
	Status           types.SiteStatus         `json:"status"`
	Alert            *types.Alert             `json:"alert,omitempty"`
	IntegrityWarning bool                     `json:"integrity_warning"`
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Decoder   Decoder
	Sites     alerts.SiteRepository
	Readings  ReadingStore
	Processor Processor
	Metrics   RejectionRecorder
	Clock     types.Clock
	Logger    types.Logger
	NewID     func() string
}

// Service runs the submission pipeline.
type Service struct {
	decoder   Decoder
	sites     alerts.SiteRepository
	readings  ReadingStore
	processor Processor
	metrics   RejectionRecorder
	clock     types.Clock
	logger    types.Logger
	newID     func() string
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		decoder:   cfg.Decoder,
		sites:     cfg.Sites,
		readings:  cfg.Readings,
		processor: cfg.Processor,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		newID:     cfg.NewID,
	}
	if s.clock == nil {
		s.clock = types.RealClock{}
	}
	if s.logger == nil {
		s.logger = types.NopLogger{}
	}
	if s.newID == nil {
		s.newID = func() string { return "rd_" + uuid.New().String() }
	}
	return s
}

// Validate decodes and validates a credential without storing anything.
func (s *Service) Validate(ctx context.Context, token string, position types.GeoPoint) (*credential.Acceptance, error) {
	payload, err := s.decoder.Decode(token)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}
	acc, err := credential.Validate(payload, position, s.clock.Now())
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}
	return acc, nil
}

// Submit validates req, stores the reading and runs it through the alert
// engine. The previous status is derived from the site's latest reading
// before this one.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	acc, err := s.Validate(ctx, req.Token, req.Position)
	if err != nil {
		return nil, err
	}
	p := acc.Payload

	thresholds, err := s.sites.GetThresholds(ctx, p.SiteID)
	if err != nil {
		return nil, err
	}

	previous, err := s.sites.GetLatestReading(ctx, p.SiteID)
	if err != nil {
		return nil, fmt.Errorf("load latest reading for %s: %w", p.SiteID, err)
	}

	now := s.clock.Now()
	position := req.Position
	distance := acc.DistanceMeters
	rd := &types.WaterLevelReading{
		ID:                     s.newID(),
		SiteID:                 p.SiteID,
		UserID:                 req.UserID,
		Level:                  req.Level,
		SubmittedAt:            now,
		Position:               &position,
		DistanceFromSiteMeters: &distance,
	}
	if err := s.readings.Create(ctx, rd); err != nil {
		return nil, err
	}

	log := s.logger.With("site_id", p.SiteID, "reading_id", rd.ID)
	log.Info("reading stored", "level", rd.Level, "distance_m", math.Round(distance))

	alert, st, err := s.processor.ProcessReading(ctx, alerts.ReadingEvent{
		Site:     siteFromPayload(p, thresholds),
		UserID:   req.UserID,
		Reading:  rd,
		Previous: previous,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("evaluate reading %s: %w", rd.ID, err)
	}

	return &SubmitResult{
		Reading:          rd,
		Status:           st,
		Alert:            alert,
		IntegrityWarning: p.IntegrityWarning,
	}, nil
}

func (s *Service) reject(ctx context.Context, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return
	}
	s.logger.Warn("credential rejected", "code", string(appErr.Code), "details", appErr.Details)
	if s.metrics != nil {
		s.metrics.RecordCredentialRejected(ctx, appErr.Code)
	}
}

func validateRequest(req SubmitRequest) error {
	if req.Token == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"token is required", nil, map[string]any{"field": "token"})
	}
	if req.UserID == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"user_id is required", nil, map[string]any{"field": "user_id"})
	}
	if req.Position.Latitude < types.MinLat || req.Position.Latitude > types.MaxLat || math.IsNaN(req.Position.Latitude) {
		return types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be within [-90, 90]", nil)
	}
	if req.Position.Longitude < types.MinLon || req.Position.Longitude > types.MaxLon || math.IsNaN(req.Position.Longitude) {
		return types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be within [-180, 180]", nil)
	}
	if math.IsNaN(req.Level) || math.IsInf(req.Level, 0) || req.Level < 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidLevel, "level must be a non-negative number", nil)
	}
	return nil
}

// siteFromPayload rebuilds the site the engine classifies against. Stored
// thresholds win over the levels printed into the credential.
func siteFromPayload(p *types.SiteCredentialPayload, t types.Thresholds) *types.MonitoringSite {
	return &types.MonitoringSite{
		ID:                   p.SiteID,
		Name:                 p.Name,
		Location:             p.Location,
		Coordinates:          p.Coordinates,
		Thresholds:           t,
		GeofenceRadiusMeters: p.GeofenceRadiusMeters,
		IsActive:             p.IsActive,
	}
}
