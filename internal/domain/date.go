package domain

import (
	"fmt"
	"strings"
	"time"
)

const sessionDateLayout = "2006-01-02"

// ParseSessionDate parses a bare yyyy-mm-dd value as a calendar day in loc,
// anchored at noon so later UTC conversions cannot move it to another day.
func ParseSessionDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: session date is required", ErrValidation)
	}

	day, err := time.ParseInLocation(sessionDateLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: session date must be yyyy-mm-dd", ErrValidation)
	}

	return AnchorSessionDate(day, loc), nil
}

// AnchorSessionDate moves t to local noon of its calendar day in loc.
func AnchorSessionDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}
