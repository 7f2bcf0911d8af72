package alerts

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hydrosnap/internal/types"
)

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) ExistsToday(ctx context.Context, siteID, userID string, alertType types.AlertType, day time.Time) (bool, error) {
	args := m.Called(ctx, siteID, userID, alertType, day)
	return args.Bool(0), args.Error(1)
}

func (m *mockAlertRepo) Insert(ctx context.Context, a *types.Alert) (*types.Alert, error) {
	args := m.Called(ctx, a)
	if fn, ok := args.Get(0).(func(context.Context, *types.Alert) *types.Alert); ok {
		return fn(ctx, a), args.Error(1)
	}
	if v := args.Get(0); v != nil {
		return v.(*types.Alert), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAlertRepo) MarkNotified(ctx context.Context, alertID string) error {
	return m.Called(ctx, alertID).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Dispatch(ctx context.Context, a *types.Alert) error {
	return m.Called(ctx, a).Error(0)
}

type countingMetrics struct {
	created      int
	deduplicated int
}

func (c *countingMetrics) AlertCreated(context.Context, *types.Alert) { c.created++ }

func (c *countingMetrics) AlertDeduplicated(context.Context, string, types.AlertType) {
	c.deduplicated++
}

// memoryAlertRepo enforces the dedup key the way a unique index would.
type memoryAlertRepo struct {
	rows map[string]*types.Alert
}

func newMemoryAlertRepo() *memoryAlertRepo {
	return &memoryAlertRepo{rows: map[string]*types.Alert{}}
}

func dedupKey(siteID, userID string, t types.AlertType, day time.Time) string {
	return siteID + "|" + userID + "|" + string(t) + "|" + day.Format("2006-01-02")
}

func (r *memoryAlertRepo) ExistsToday(_ context.Context, siteID, userID string, t types.AlertType, day time.Time) (bool, error) {
	_, ok := r.rows[dedupKey(siteID, userID, t, day)]
	return ok, nil
}

func (r *memoryAlertRepo) Insert(_ context.Context, a *types.Alert) (*types.Alert, error) {
	k := dedupKey(a.SiteID, a.UserID, a.AlertType, a.AlertDay)
	if _, ok := r.rows[k]; ok {
		return nil, types.NewAppError(types.ErrCodeConflictAlertExists, "alert exists", nil)
	}
	r.rows[k] = a
	return a, nil
}

func (r *memoryAlertRepo) MarkNotified(context.Context, string) error { return nil }
