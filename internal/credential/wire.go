package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"hydrosnap/internal/types"
)

// wirePayload is the JSON shape of a credential. Pointer fields let the
// schema check tell "absent" apart from a zero value.
type wirePayload struct {
	SiteID               *string          `json:"siteId" validate:"required,min=1"`
	Name                 *string          `json:"name" validate:"required"`
	Location             *string          `json:"location" validate:"required"`
	Coordinates          *wireCoordinates `json:"coordinates" validate:"required"`
	Levels               *wireLevels      `json:"levels" validate:"required"`
	GeofenceRadius       *float64         `json:"geofenceRadius" validate:"omitempty,gt=0"`
	GeofenceRadiusMeters *float64         `json:"geofenceRadiusMeters" validate:"omitempty,gt=0"`
	QRCode               *string          `json:"qrCode,omitempty"`
	IsActive             *bool            `json:"isActive" validate:"required"`
	GeneratedAt          *string          `json:"generatedAt" validate:"required"`
	ExpiresAt            *string          `json:"expiresAt" validate:"required"`
	ValidationHash       *string          `json:"validationHash" validate:"required"`
}

type wireCoordinates struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type wireLevels struct {
	Safe    *float64 `json:"safe" validate:"required"`
	Warning *float64 `json:"warning" validate:"required"`
	Danger  *float64 `json:"danger" validate:"required"`
}

// outboundPayload is what the issuer writes. Field order matches the
// generator so tokens stay byte-comparable across implementations.
type outboundPayload struct {
	SiteID         string         `json:"siteId"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	Coordinates    outboundCoords `json:"coordinates"`
	Levels         types.Levels   `json:"levels"`
	GeofenceRadius float64        `json:"geofenceRadius"`
	QRCode         string         `json:"qrCode,omitempty"`
	IsActive       bool           `json:"isActive"`
	GeneratedAt    string         `json:"generatedAt"`
	ExpiresAt      string         `json:"expiresAt"`
	ValidationHash string         `json:"validationHash"`
}

type outboundCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// errNotJSON marks strategy output that is not a JSON document at all, as
// opposed to a JSON document that fails the schema.
var errNotJSON = errors.New("plaintext is not a JSON document")

// parsePayload turns decoded plaintext into a payload. It returns errNotJSON
// when the bytes are not JSON, and a malformed AppError when the document
// violates the credential schema.
func parsePayload(raw []byte, v *validator.Validate) (*types.SiteCredentialPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return nil, errNotJSON
	}

	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("credential field has the wrong type", err)
	}
	if err := v.Struct(&w); err != nil {
		return nil, malformed("credential is missing required fields", err)
	}

	radius := w.GeofenceRadius
	if radius == nil {
		radius = w.GeofenceRadiusMeters
	}
	if radius == nil {
		return nil, malformed("credential is missing geofenceRadius", nil)
	}

	generatedAt, err := parseTimestamp(*w.GeneratedAt)
	if err != nil {
		return nil, malformed("credential generatedAt is not a timestamp", err)
	}
	expiresAt, err := parseTimestamp(*w.ExpiresAt)
	if err != nil {
		return nil, malformed("credential expiresAt is not a timestamp", err)
	}

	p := &types.SiteCredentialPayload{
		SiteID:   *w.SiteID,
		Name:     *w.Name,
		Location: *w.Location,
		Coordinates: types.GeoPoint{
			Latitude:  *w.Coordinates.Lat,
			Longitude: *w.Coordinates.Lng,
		},
		Levels: types.Levels{
			Safe:    *w.Levels.Safe,
			Warning: *w.Levels.Warning,
			Danger:  *w.Levels.Danger,
		},
		GeofenceRadiusMeters: *radius,
		IsActive:             *w.IsActive,
		GeneratedAt:          generatedAt,
		ExpiresAt:            expiresAt,
		ValidationHash:       *w.ValidationHash,
	}
	if w.QRCode != nil {
		p.QRCode = *w.QRCode
	}
	return p, nil
}

// marshalPayload renders p in the compact wire form.
func marshalPayload(p *types.SiteCredentialPayload) ([]byte, error) {
	out := outboundPayload{
		SiteID:   p.SiteID,
		Name:     p.Name,
		Location: p.Location,
		Coordinates: outboundCoords{
			Lat: p.Coordinates.Latitude,
			Lng: p.Coordinates.Longitude,
		},
		Levels:         p.Levels,
		GeofenceRadius: p.GeofenceRadiusMeters,
		QRCode:         p.QRCode,
		IsActive:       p.IsActive,
		GeneratedAt:    formatTimestamp(p.GeneratedAt),
		ExpiresAt:      formatTimestamp(p.ExpiresAt),
		ValidationHash: p.ValidationHash,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("credential: marshal payload: %w", err)
	}
	return b, nil
}

func malformed(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeCredentialMalformed, msg, err)
}
