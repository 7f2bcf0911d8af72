package types

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestGeoPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    GeoPoint
		want bool
	}{
		{"origin", GeoPoint{0, 0}, true},
		{"poles and antimeridian", GeoPoint{90, -180}, true},
		{"lat too high", GeoPoint{90.0001, 0}, false},
		{"lat too low", GeoPoint{-91, 0}, false},
		{"lng too high", GeoPoint{0, 180.5}, false},
		{"lng too low", GeoPoint{0, -181}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSiteCredentialPayloadThresholds(t *testing.T) {
	p := &SiteCredentialPayload{Levels: Levels{Safe: 50, Warning: 120, Danger: 180}}
	want := Thresholds{SafeLevel: 50, WarningLevel: 120, DangerLevel: 180}
	if got := p.Thresholds(); got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestSiteCredentialPayloadIntegrityWarningNotSerialized(t *testing.T) {
	p := SiteCredentialPayload{SiteID: "site-1", IntegrityWarning: true}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "ntegrity") {
		t.Errorf("IntegrityWarning leaked into wire format: %s", data)
	}
	if !strings.Contains(string(data), `"siteId":"site-1"`) {
		t.Errorf("expected camelCase wire keys, got %s", data)
	}
}

func TestSeverityUrgency(t *testing.T) {
	tests := map[Severity]UrgencyLevel{
		SeverityInfo:     UrgencyNormal,
		SeverityMedium:   UrgencyNormal,
		SeverityHigh:     UrgencyHigh,
		SeverityCritical: UrgencyHigh,
		Severity("odd"):  UrgencyNormal,
	}
	for sev, want := range tests {
		if got := sev.Urgency(); got != want {
			t.Errorf("%s.Urgency() = %s, want %s", sev, got, want)
		}
	}
}

func TestNewAlertMessage(t *testing.T) {
	level, threshold := 190.0, 180.0
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	a := &Alert{
		ID:             "alert-1",
		SiteID:         "site-1",
		UserID:         "user-1",
		AlertType:      AlertTypeDanger,
		Severity:       SeverityCritical,
		Message:        "Water level 190.0cm exceeds danger threshold",
		WaterLevel:     &level,
		ThresholdLevel: &threshold,
		CreatedAt:      created,
	}

	msg := NewAlertMessage(a, "req-42")

	if msg.AlertID != "alert-1" || msg.SiteID != "site-1" || msg.UserID != "user-1" {
		t.Errorf("ids not copied: %+v", msg)
	}
	if msg.Urgency != UrgencyHigh {
		t.Errorf("Urgency = %s, want high", msg.Urgency)
	}
	if msg.TraceID != "req-42" {
		t.Errorf("TraceID = %q", msg.TraceID)
	}
	if *msg.WaterLevel != 190 || *msg.ThresholdLevel != 180 || !msg.CreatedAt.Equal(created) {
		t.Errorf("payload fields not copied: %+v", msg)
	}

	data, err := json.Marshal(NewAlertMessage(&Alert{AlertType: AlertTypeMissedReading, Severity: SeverityMedium}, ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"water_level", "threshold_level", "trace_id"} {
		if strings.Contains(string(data), key) {
			t.Errorf("expected %s to be omitted, got %s", key, data)
		}
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("empty context returned %q", got)
	}
	ctx = WithRequestID(ctx, "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q, want req-1", got)
	}
	type foreignKey string
	ctx = context.WithValue(ctx, foreignKey("request_id"), "other")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q after foreign key, want req-1", got)
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil))).With("site_id", "site-9")

	l.Info("sweep started")
	l.Warn("notifier slow")
	l.Error("dispatch failed", "error", "boom")

	out := buf.String()
	for _, want := range []string{"level=INFO", "level=WARN", "level=ERROR", "site_id=site-9", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	if NewSlogAdapter(nil) == nil {
		t.Error("nil logger should fall back to slog.Default")
	}

	var nop Logger = NopLogger{}
	nop.With("k", "v").Info("ignored")
}

func TestClocks(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := FixedClock(at).Now(); !got.Equal(at) {
		t.Errorf("FixedClock.Now() = %v", got)
	}
	if loc := (RealClock{}).Now().Location(); loc != time.UTC {
		t.Errorf("RealClock location = %v, want UTC", loc)
	}
}
