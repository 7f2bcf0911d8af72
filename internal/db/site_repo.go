package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hydrosnap/internal/types"
)

// SiteRepository reads monitoring sites, their assignments and their latest
// readings. Sites are managed outside this service; nothing here writes to
// the sites table.
type SiteRepository struct {
	db DBTX
}

// NewSiteRepository creates a new SiteRepository backed by the given
// database connection (pool or transaction).
func NewSiteRepository(db DBTX) *SiteRepository {
	return &SiteRepository{db: db}
}

const siteColumns = `s.id, s.name, s.location, s.latitude, s.longitude,
	s.safe_level, s.warning_level, s.danger_level, s.geofence_radius_m,
	s.is_active, COALESCE(s.organization_id, ''), s.created_at, s.updated_at`

func scanSite(row pgx.Row) (*types.MonitoringSite, error) {
	var s types.MonitoringSite
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Location,
		&s.Coordinates.Latitude,
		&s.Coordinates.Longitude,
		&s.Thresholds.SafeLevel,
		&s.Thresholds.WarningLevel,
		&s.Thresholds.DangerLevel,
		&s.GeofenceRadiusMeters,
		&s.IsActive,
		&s.OrganizationID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a single site or a not_found_site error.
func (r *SiteRepository) GetByID(ctx context.Context, id string) (*types.MonitoringSite, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM sites s WHERE s.id = $1`,
		id,
	)
	s, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundSite, "monitoring site not found", nil)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get site", err)
	}
	return s, nil
}

// ListByIDs returns the sites among ids that exist, ordered by id. Unknown
// ids are skipped.
func (r *SiteRepository) ListByIDs(ctx context.Context, ids []string) ([]*types.MonitoringSite, error) {
	if len(ids) == 0 {
		return []*types.MonitoringSite{}, nil
	}
	return r.list(ctx, "failed to list sites",
		`SELECT `+siteColumns+` FROM sites s WHERE s.id = ANY($1) ORDER BY s.id`,
		ids,
	)
}

// ListActive returns every active site ordered by id.
func (r *SiteRepository) ListActive(ctx context.Context) ([]*types.MonitoringSite, error) {
	return r.list(ctx, "failed to list active sites",
		`SELECT `+siteColumns+` FROM sites s WHERE s.is_active ORDER BY s.id`,
	)
}

func (r *SiteRepository) list(ctx context.Context, errMsg, query string, args ...any) ([]*types.MonitoringSite, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, errMsg, err)
	}
	defer rows.Close()

	sites := []*types.MonitoringSite{}
	for rows.Next() {
		s, scanErr := scanSite(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan site row", scanErr)
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating site rows", err)
	}
	return sites, nil
}

// GetThresholds returns the configured levels for a site.
func (r *SiteRepository) GetThresholds(ctx context.Context, siteID string) (types.Thresholds, error) {
	var t types.Thresholds
	err := r.db.QueryRow(ctx,
		`SELECT safe_level, warning_level, danger_level FROM sites WHERE id = $1`,
		siteID,
	).Scan(&t.SafeLevel, &t.WarningLevel, &t.DangerLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Thresholds{}, types.NewAppError(types.ErrCodeNotFoundSite, "monitoring site not found", nil)
	}
	if err != nil {
		return types.Thresholds{}, types.NewAppError(types.ErrCodeInternalDB, "failed to get site thresholds", err)
	}
	return t, nil
}

// GetLatestReading returns the newest reading for a site, or nil when the
// site has none.
func (r *SiteRepository) GetLatestReading(ctx context.Context, siteID string) (*types.WaterLevelReading, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+readingColumns+`
		 FROM readings rd
		 WHERE rd.site_id = $1
		 ORDER BY rd.submitted_at DESC
		 LIMIT 1`,
		siteID,
	)
	rd, err := scanReading(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get latest reading", err)
	}
	return rd, nil
}

// GetLatestReadingsBatch returns the newest reading per site in a single
// query. Sites without readings are absent from the map.
func (r *SiteRepository) GetLatestReadingsBatch(ctx context.Context, siteIDs []string) (map[string]*types.WaterLevelReading, error) {
	out := make(map[string]*types.WaterLevelReading, len(siteIDs))
	if len(siteIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (rd.site_id) `+readingColumns+`
		 FROM readings rd
		 WHERE rd.site_id = ANY($1)
		 ORDER BY rd.site_id, rd.submitted_at DESC`,
		siteIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to batch get latest readings", err)
	}
	defer rows.Close()

	for rows.Next() {
		rd, scanErr := scanReading(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reading row", scanErr)
		}
		out[rd.SiteID] = rd
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating reading rows", err)
	}
	return out, nil
}

// ListAssignees returns the users assigned to each site. Sites with no
// assignees are absent from the map.
func (r *SiteRepository) ListAssignees(ctx context.Context, siteIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(siteIDs))
	if len(siteIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT site_id, user_id
		 FROM site_assignments
		 WHERE site_id = ANY($1)
		 ORDER BY site_id, user_id`,
		siteIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list site assignees", err)
	}
	defer rows.Close()

	for rows.Next() {
		var siteID, userID string
		if err := rows.Scan(&siteID, &userID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan assignment row", err)
		}
		out[siteID] = append(out[siteID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating assignment rows", err)
	}
	return out, nil
}
