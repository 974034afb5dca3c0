package model

import (
	"fmt"
	"strings"
	"time"
)

// IntervalType is the unit a recurring rule advances by.
type IntervalType string

const (
	// IntervalDay advances by calendar days.
	IntervalDay IntervalType = "DAY"
	// IntervalWeek advances by seven calendar days.
	IntervalWeek IntervalType = "WEEK"
	// IntervalMonth advances by calendar months.
	IntervalMonth IntervalType = "MONTH"
	// IntervalYear advances by calendar years.
	IntervalYear IntervalType = "YEAR"
)

// ParseIntervalType parses a case-insensitive interval name.
func ParseIntervalType(s string) (IntervalType, error) {
	it := IntervalType(strings.ToUpper(strings.TrimSpace(s)))
	if !it.Valid() {
		return "", fmt.Errorf("unknown interval type %q", s)
	}
	return it, nil
}

// Valid reports whether the interval type is one of the known units.
func (t IntervalType) Valid() bool {
	switch t {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// Unit returns the lower-case unit name, pluralized for n other than 1.
func (t IntervalType) Unit(n int) string {
	unit := strings.ToLower(string(t))
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// Advance returns anchor moved forward by n units of t. Month and year steps
// clamp to the last day of the target month.
func (t IntervalType) Advance(anchor time.Time, n int) time.Time {
	switch t {
	case IntervalDay:
		return anchor.AddDate(0, 0, n)
	case IntervalWeek:
		return anchor.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return addMonthsClamped(anchor, n)
	case IntervalYear:
		return addMonthsClamped(anchor, 12*n)
	}
	panic(fmt.Sprintf("model: advance with invalid interval type %q", string(t)))
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
