package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"hydrosnap/internal/types"
)

// ReadingRepository writes field readings. Readings are immutable once
// stored.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

const readingColumns = `rd.id, rd.site_id, rd.user_id, rd.level, rd.submitted_at,
	rd.latitude, rd.longitude, rd.distance_from_site_m`

func scanReading(row pgx.Row) (*types.WaterLevelReading, error) {
	var (
		rd       types.WaterLevelReading
		lat, lng *float64
	)
	err := row.Scan(
		&rd.ID,
		&rd.SiteID,
		&rd.UserID,
		&rd.Level,
		&rd.SubmittedAt,
		&lat,
		&lng,
		&rd.DistanceFromSiteMeters,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		rd.Position = &types.GeoPoint{Latitude: *lat, Longitude: *lng}
	}
	return &rd, nil
}

// Create inserts a reading. The caller sets the ID; SubmittedAt defaults to
// NOW() when zero and is read back.
func (r *ReadingRepository) Create(ctx context.Context, rd *types.WaterLevelReading) error {
	var lat, lng *float64
	if rd.Position != nil {
		lat, lng = &rd.Position.Latitude, &rd.Position.Longitude
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO readings
		 (id, site_id, user_id, level, submitted_at, latitude, longitude, distance_from_site_m)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6, $7, $8)
		 RETURNING submitted_at`,
		rd.ID,
		rd.SiteID,
		rd.UserID,
		rd.Level,
		nilIfZeroTime(rd.SubmittedAt),
		lat,
		lng,
		rd.DistanceFromSiteMeters,
	).Scan(&rd.SubmittedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create reading", err)
	}
	return nil
}
