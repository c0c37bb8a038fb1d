package server

import (
	"errors"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidTime = errors.New("invalid_time")

// parseOptionalTime accepts RFC3339 timestamps or plain dates. A plain date
// used as an upper bound covers the whole day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errInvalidTime
}

// parseTimeField wraps parseOptionalTime with a field-level validation error.
func parseTimeField(field, value string, endOfDay bool) (*time.Time, error) {
	parsed, err := parseOptionalTime(value, endOfDay)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return parsed, nil
}
