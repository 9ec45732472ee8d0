package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the size of the wall-clock day in minutes.
const MinutesPerDay = 24 * 60

// ParseClock parses a "HH:MM" wall-clock value into minutes from midnight.
// "24:00" is accepted as the end of the day; any other hour above 23 is not.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || hh == "" || len(mm) != 2 {
		return 0, fmt.Errorf("malformed time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || len(hh) > 2 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	if h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return total, nil
}

// FormatClock renders minutes from midnight as "HH:MM", wrapping modulo 24h.
func FormatClock(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatRange renders "HH:MM – HH:MM" as printed on item blocks.
func FormatRange(start, end int) string {
	return FormatClock(start) + " – " + FormatClock(end)
}
