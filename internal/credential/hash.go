package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// hashLength is the number of hex characters kept from the digest.
const hashLength = 16

// ValidationHash computes the integrity tag embedded in every credential:
// the first 16 hex chars of SHA256(siteId + name + lat + lng). Coordinates
// are rendered the way the credential generator prints floats, so tokens
// issued by either side verify against each other.
func ValidationHash(siteID, name string, lat, lng float64) string {
	var b strings.Builder
	b.WriteString(siteID)
	b.WriteString(name)
	b.WriteString(formatCoordinate(lat))
	b.WriteString(formatCoordinate(lng))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:hashLength]
}

// formatCoordinate renders f as the shortest round-tripping decimal.
// Integral values keep a trailing ".0" and very small or very large
// magnitudes switch to exponent notation ("1e-05").
func formatCoordinate(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
