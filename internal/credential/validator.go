package credential

import (
	"errors"
	"fmt"
	"math"
	"time"

	"hydrosnap/internal/geo"
	"hydrosnap/internal/types"
)

// Acceptance is the outcome of a credential that passed every check.
type Acceptance struct {
	Payload        *types.SiteCredentialPayload
	DistanceMeters float64
}

// Validate checks, in order, that the site is active, the credential has not
// expired, and position lies within the site's geofence. The first failing
// check determines the returned *types.AppError; the distance is only
// computed once the cheaper checks pass.
func Validate(p *types.SiteCredentialPayload, position types.GeoPoint, now time.Time) (*Acceptance, error) {
	if !p.IsActive {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeCredentialInactive,
			"This monitoring site is currently inactive. Contact your supervisor.", nil,
			map[string]any{"site_id": p.SiteID})
	}

	if !now.Before(p.ExpiresAt) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeCredentialExpired,
			fmt.Sprintf("This site's QR code expired on %s. Contact your supervisor for a new one.",
				p.ExpiresAt.UTC().Format("2006-01-02")), nil,
			map[string]any{
				"site_id":    p.SiteID,
				"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
			})
	}

	inside, distance := geo.WithinRadius(p.Coordinates, position, p.GeofenceRadiusMeters)
	if !inside {
		return nil, OutOfGeofence(p.SiteID, distance, p.GeofenceRadiusMeters)
	}

	return &Acceptance{Payload: p, DistanceMeters: distance}, nil
}

// OutOfGeofence builds the rejection for a device too far from its site.
func OutOfGeofence(siteID string, distance, required float64) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeCredentialOutOfGeofence,
		fmt.Sprintf("You are %.0f m from the site. Move within %.0f m to submit a reading.",
			math.Round(distance), required), nil,
		map[string]any{
			"site_id":    siteID,
			"distance_m": distance,
			"required_m": required,
		})
}

// GeofenceDetails extracts measured and required distances from an
// out-of-geofence rejection.
func GeofenceDetails(err error) (distance, required float64, ok bool) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeCredentialOutOfGeofence {
		return 0, 0, false
	}
	distance, ok1 := appErr.Details["distance_m"].(float64)
	required, ok2 := appErr.Details["required_m"].(float64)
	return distance, required, ok1 && ok2
}
