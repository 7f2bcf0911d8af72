// Package main implements credgen, which issues site QR credentials from a
// CSV of monitoring sites.
//
// Usage:
//
//	go run ./cmd/credgen --in sites.csv
//	go run ./cmd/credgen --in sites.csv --validity 720h --format json
//	go run ./cmd/credgen --in sites.csv --plain
//
// The CSV must carry a header row with the columns
// id,name,location,latitude,longitude,safe_level,warning_level,danger_level,
// geofence_radius,is_active (in any order). The signing secret is read from
// CREDENTIAL_SECRET (or a .env file). Tokens go to stdout, one per site.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hydrosnap/internal/credential"
	"hydrosnap/internal/types"
)

var requiredColumns = []string{
	"id", "name", "location", "latitude", "longitude",
	"safe_level", "warning_level", "danger_level",
	"geofence_radius", "is_active",
}

// issued is one output record.
type issued struct {
	SiteID    string    `json:"site_id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
}

func main() {
	inFlag := flag.String("in", "-", "CSV file of sites (- for stdin)")
	validityFlag := flag.Duration("validity", credential.DefaultValidity, "How long issued credentials stay valid")
	formatFlag := flag.String("format", "text", "Output format: text or json")
	plainFlag := flag.Bool("plain", false, "Emit unencrypted base64url tokens")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	_ = godotenv.Load()

	if err := run(*inFlag, *validityFlag, *formatFlag, *plainFlag, os.Stdout); err != nil {
		logger.Error("credential generation failed", "error", err)
		os.Exit(1)
	}
}

func run(in string, validity time.Duration, format string, plain bool, out io.Writer) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}
	if validity <= 0 {
		return errors.New("validity must be positive")
	}

	var issuer *credential.Issuer
	if !plain {
		secret := os.Getenv("CREDENTIAL_SECRET")
		if secret == "" {
			return errors.New("CREDENTIAL_SECRET is not set")
		}
		issuer = credential.NewIssuer(types.SecretString(secret))
	}

	r := io.Reader(os.Stdin)
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	sites, err := parseSites(r)
	if err != nil {
		return err
	}
	records, err := issueAll(sites, issuer, time.Now().UTC(), validity)
	if err != nil {
		return err
	}
	return write(out, records, format)
}

// parseSites reads the site CSV. Rows are reported by their line number.
func parseSites(r io.Reader) ([]*types.MonitoringSite, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var sites []*types.MonitoringSite
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		site, err := parseRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func parseRow(rec []string, col map[string]int) (*types.MonitoringSite, error) {
	get := func(name string) string { return strings.TrimSpace(rec[col[name]]) }

	var floatErr error
	num := func(name string) float64 {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil && floatErr == nil {
			floatErr = fmt.Errorf("%s: %w", name, err)
		}
		return v
	}

	site := &types.MonitoringSite{
		ID:          get("id"),
		Name:        get("name"),
		Location:    get("location"),
		Coordinates: types.GeoPoint{Latitude: num("latitude"), Longitude: num("longitude")},
		Thresholds: types.Thresholds{
			SafeLevel:    num("safe_level"),
			WarningLevel: num("warning_level"),
			DangerLevel:  num("danger_level"),
		},
		GeofenceRadiusMeters: num("geofence_radius"),
	}
	if floatErr != nil {
		return nil, floatErr
	}

	active, err := strconv.ParseBool(get("is_active"))
	if err != nil {
		return nil, fmt.Errorf("is_active: %w", err)
	}
	site.IsActive = active

	switch {
	case site.ID == "":
		return nil, errors.New("id is empty")
	case !site.Coordinates.Valid():
		return nil, errors.New("coordinates out of range")
	case site.GeofenceRadiusMeters <= 0:
		return nil, errors.New("geofence_radius must be positive")
	}
	return site, nil
}

// issueAll seals every site. A nil issuer produces plain tokens.
func issueAll(sites []*types.MonitoringSite, issuer *credential.Issuer, now time.Time, validity time.Duration) ([]issued, error) {
	out := make([]issued, 0, len(sites))
	for _, s := range sites {
		var (
			token string
			p     *types.SiteCredentialPayload
			err   error
		)
		if issuer != nil {
			token, p, err = issuer.Issue(s, s.ID, now, validity)
		} else {
			p = credential.NewPayload(s, s.ID, now, validity)
			token, err = credential.EncodePlain(p)
		}
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", s.ID, err)
		}
		out = append(out, issued{SiteID: s.ID, Name: s.Name, ExpiresAt: p.ExpiresAt, Token: token})
	}
	return out, nil
}

func write(w io.Writer, records []issued, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", r.SiteID, r.Token); err != nil {
			return err
		}
	}
	return nil
}
