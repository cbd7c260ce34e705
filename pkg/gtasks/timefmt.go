package gtasks

import (
	"errors"
	"strings"
	"time"
)

var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // naive, read as UTC
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDue renders a due timestamp as RFC3339 with an explicit offset.
// Local wall-clock values are converted to UTC first.
func FormatDue(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDue accepts RFC3339 with or without a trailing zone suffix
func ParseDue(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty due value")
	}
	var lastErr error
	for _, layout := range dueLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
