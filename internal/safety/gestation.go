package safety

import (
	"strings"
	"time"
)

const lmpLayout = "2006-01-02"

// GestationalWeek returns whole weeks elapsed from lmp to today, clamped at
// zero for future dates. Both are compared as calendar dates.
func GestationalWeek(lmp, today time.Time) int {
	days := int(dateOf(today).Sub(dateOf(lmp)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

// ParseLMP parses a YYYY-MM-DD date
func ParseLMP(s string) (time.Time, error) {
	t, err := time.Parse(lmpLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidLMP
	}
	return t, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
