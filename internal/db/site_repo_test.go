package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hydrosnap/internal/types"
)

var repoNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func siteRow(id string, active bool) []any {
	return []any{
		id, "Mithi River Gauge", "Kurla, Mumbai", 19.076, 72.8777,
		120.0, 135.0, 145.0, 500.0,
		active, "org_1", repoNow, repoNow,
	}
}

func readingRow(id, siteID string, level float64, at time.Time) []any {
	lat, lng, dist := 19.0765, 72.8781, 69.7
	return []any{id, siteID, "usr_1", level, at, &lat, &lng, &dist}
}

// ============================================================
// GetByID / GetThresholds
// ============================================================

func TestSiteRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"SITE001"}).
		Return(&mockRow{values: siteRow("SITE001", true)})

	site, err := repo.GetByID(ctx, "SITE001")
	require.NoError(t, err)
	assert.Equal(t, "SITE001", site.ID)
	assert.Equal(t, types.GeoPoint{Latitude: 19.076, Longitude: 72.8777}, site.Coordinates)
	assert.Equal(t, 145.0, site.Thresholds.DangerLevel)
	assert.Equal(t, 500.0, site.GeofenceRadiusMeters)
	assert.True(t, site.IsActive)

	db.AssertExpectations(t)
}

func TestSiteRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundSite))
}

func TestSiteRepository_GetThresholds(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"SITE001"}).
		Return(&mockRow{values: []any{120.0, 135.0, 145.0}})

	th, err := repo.GetThresholds(ctx, "SITE001")
	require.NoError(t, err)
	assert.Equal(t, types.Thresholds{SafeLevel: 120, WarningLevel: 135, DangerLevel: 145}, th)
}

func TestSiteRepository_GetThresholds_DBErrorKeepsCause(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"SITE001"}).
		Return(&mockRow{scanErr: context.DeadlineExceeded})

	_, err := repo.GetThresholds(ctx, "SITE001")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ============================================================
// Lists
// ============================================================

func TestSiteRepository_ListActive(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "WHERE s.is_active")
	}), []any(nil)).Return(newMockRows([][]any{siteRow("A", true), siteRow("B", true)}), nil)

	sites, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "A", sites[0].ID)
	assert.Equal(t, "B", sites[1].ID)
}

func TestSiteRepository_ListByIDs_EmptySkipsQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)

	sites, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sites)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestSiteRepository_ListByIDs_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), []any{[]string{"A"}}).
		Return(nil, errors.New("connection refused"))

	_, err := repo.ListByIDs(ctx, []string{"A"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

// ============================================================
// Latest readings
// ============================================================

func TestSiteRepository_GetLatestReading(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"SITE001"}).
		Return(&mockRow{values: readingRow("rd_1", "SITE001", 150, repoNow)})

	rd, err := repo.GetLatestReading(ctx, "SITE001")
	require.NoError(t, err)
	require.NotNil(t, rd)
	assert.Equal(t, 150.0, rd.Level)
	require.NotNil(t, rd.Position)
	assert.Equal(t, 19.0765, rd.Position.Latitude)
	assert.InDelta(t, 69.7, *rd.DistanceFromSiteMeters, 1e-9)
}

func TestSiteRepository_GetLatestReading_None(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"SITE001"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	rd, err := repo.GetLatestReading(ctx, "SITE001")
	require.NoError(t, err)
	assert.Nil(t, rd)
}

func TestSiteRepository_GetLatestReadingsBatch_SingleQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()
	ids := []string{"A", "B", "C"}

	db.On("Query", ctx, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "DISTINCT ON") && strings.Contains(q, "ANY($1)")
	}), []any{ids}).Return(newMockRows([][]any{
		readingRow("rd_a", "A", 100, repoNow),
		readingRow("rd_b", "B", 140, repoNow.Add(-time.Hour)),
	}), nil).Once()

	got, err := repo.GetLatestReadingsBatch(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "rd_b", got["B"].ID)
	assert.NotContains(t, got, "C")
	db.AssertExpectations(t)
}

func TestSiteRepository_ListAssignees(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSiteRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), []any{[]string{"A", "B"}}).
		Return(newMockRows([][]any{
			{"A", "usr_1"},
			{"A", "usr_2"},
			{"B", "usr_3"},
		}), nil)

	got, err := repo.ListAssignees(ctx, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"A": {"usr_1", "usr_2"}, "B": {"usr_3"}}, got)
}
