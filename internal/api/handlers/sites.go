package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hydrosnap/internal/core"
	"hydrosnap/internal/types"
)

// SiteLister loads sites by id. Unknown ids are skipped.
type SiteLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]*types.MonitoringSite, error)
}

// StatusEnricher attaches derived status. *status.Enricher satisfies it.
type StatusEnricher interface {
	Enrich(ctx context.Context, sites []*types.MonitoringSite, now time.Time) ([]types.SiteWithStatus, error)
}

// SiteHandler serves site status.
type SiteHandler struct {
	sites    SiteLister
	enricher StatusEnricher
	clock    types.Clock
	logger   *slog.Logger
}

// NewSiteHandler creates a SiteHandler.
func NewSiteHandler(sites SiteLister, enricher StatusEnricher, clock types.Clock, l *slog.Logger) *SiteHandler {
	if l == nil {
		l = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SiteHandler{sites: sites, enricher: enricher, clock: clock, logger: l}
}

// RegisterRoutes mounts the site routes.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sites/status", h.Status)
}

// Status handles GET /v1/sites/status?ids=a,b. Sites come back in request
// order; unknown ids are omitted.
func (h *SiteHandler) Status(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"ids is required", nil, map[string]any{"field": "ids"}))
		return
	}
	if len(ids) > types.MaxStatusBatch {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize,
			fmt.Sprintf("ids accepts at most %d sites", types.MaxStatusBatch), nil,
			map[string]any{"field": "ids", "count": len(ids)}))
		return
	}

	sites, err := h.sites.ListByIDs(r.Context(), ids)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	enriched, err := h.enricher.Enrich(r.Context(), orderByIDs(sites, ids), h.clock.Now())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, enriched)
}

// parseIDs splits a comma list, trimming blanks and duplicates.
func parseIDs(raw string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func orderByIDs(sites []*types.MonitoringSite, ids []string) []*types.MonitoringSite {
	byID := make(map[string]*types.MonitoringSite, len(sites))
	for _, s := range sites {
		byID[s.ID] = s
	}
	out := make([]*types.MonitoringSite, 0, len(sites))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
