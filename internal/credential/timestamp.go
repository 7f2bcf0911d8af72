package credential

import (
	"fmt"
	"strings"
	"time"
)

// isoLayout is how credential timestamps are written: naive ISO-8601 with
// microseconds, implicitly UTC.
const isoLayout = "2006-01-02T15:04:05.000000"

// naiveLayouts are accepted when a timestamp carries no zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC3339 and naive ISO-8601 timestamps. Naive
// values are interpreted as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
