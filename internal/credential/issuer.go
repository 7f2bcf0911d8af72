package credential

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/klauspost/compress/zlib"

	"hydrosnap/internal/types"
)

// DefaultValidity is how long an issued credential stays valid.
const DefaultValidity = 365 * 24 * time.Hour

// Issuer produces credential tokens for sites. Tokens are compact JSON,
// zlib-compressed, then Fernet-encrypted under SHA256(secret).
type Issuer struct {
	cipher *CipherStrategy
}

// NewIssuer creates an Issuer for secret.
func NewIssuer(secret types.SecretString) *Issuer {
	return &Issuer{cipher: NewDerivedKeyStrategy(secret.Unmask(), 0)}
}

// NewPayload builds a credential payload for site with a correct
// validation hash.
func NewPayload(site *types.MonitoringSite, qrCode string, generatedAt time.Time, validity time.Duration) *types.SiteCredentialPayload {
	if validity <= 0 {
		validity = DefaultValidity
	}
	generatedAt = generatedAt.UTC().Truncate(time.Microsecond)
	return &types.SiteCredentialPayload{
		SiteID:      site.ID,
		Name:        site.Name,
		Location:    site.Location,
		Coordinates: site.Coordinates,
		Levels: types.Levels{
			Safe:    site.Thresholds.SafeLevel,
			Warning: site.Thresholds.WarningLevel,
			Danger:  site.Thresholds.DangerLevel,
		},
		GeofenceRadiusMeters: site.GeofenceRadiusMeters,
		QRCode:               qrCode,
		IsActive:             site.IsActive,
		GeneratedAt:          generatedAt,
		ExpiresAt:            generatedAt.Add(validity),
		ValidationHash: ValidationHash(site.ID, site.Name,
			site.Coordinates.Latitude, site.Coordinates.Longitude),
	}
}

// Issue builds and seals a credential for site.
func (i *Issuer) Issue(site *types.MonitoringSite, qrCode string, generatedAt time.Time, validity time.Duration) (string, *types.SiteCredentialPayload, error) {
	p := NewPayload(site, qrCode, generatedAt, validity)
	tok, err := i.Seal(p)
	if err != nil {
		return "", nil, err
	}
	return tok, p, nil
}

// Seal encrypts an existing payload.
func (i *Issuer) Seal(p *types.SiteCredentialPayload) (string, error) {
	plain, err := marshalPayload(p)
	if err != nil {
		return "", err
	}
	compressed, err := deflate(plain)
	if err != nil {
		return "", err
	}
	return i.cipher.Seal(compressed)
}

// EncodePlain renders p as an unencrypted base64url token.
func EncodePlain(p *types.SiteCredentialPayload) (string, error) {
	plain, err := marshalPayload(p)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(plain), nil
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("credential: compress: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("credential: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("credential: compress: %w", err)
	}
	return buf.Bytes(), nil
}
