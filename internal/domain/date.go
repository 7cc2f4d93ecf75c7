package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the caption date format, dd.mm.yyyy.
const DateLayout = "02.01.2006"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reads a dd.mm.yyyy caption date. Unlike time.Parse it accepts
// single-digit day and month parts.
func ParseDate(value string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: expected dd.mm.yyyy", value)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("date %q: invalid component %q", value, part)
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("date %q: no such calendar day", value)
	}
	return t, nil
}
