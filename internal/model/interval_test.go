package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIntervalType_Advance(t *testing.T) {
	tests := []struct {
		anchor   time.Time
		want     time.Time
		name     string
		interval IntervalType
		n        int
	}{
		{name: "days", interval: IntervalDay, anchor: date(2024, 1, 1), n: 31, want: date(2024, 2, 1)},
		{name: "weeks", interval: IntervalWeek, anchor: date(2024, 1, 1), n: 2, want: date(2024, 1, 15)},
		{name: "month keeps day", interval: IntervalMonth, anchor: date(2024, 1, 15), n: 1, want: date(2024, 2, 15)},
		{name: "month clamps leap february", interval: IntervalMonth, anchor: date(2024, 1, 31), n: 1, want: date(2024, 2, 29)},
		{name: "month clamps february", interval: IntervalMonth, anchor: date(2023, 1, 31), n: 1, want: date(2023, 2, 28)},
		{name: "two months from the 31st", interval: IntervalMonth, anchor: date(2024, 1, 31), n: 2, want: date(2024, 3, 31)},
		{name: "month crosses year", interval: IntervalMonth, anchor: date(2024, 11, 30), n: 3, want: date(2025, 2, 28)},
		{name: "year from leap day", interval: IntervalYear, anchor: date(2024, 2, 29), n: 1, want: date(2025, 2, 28)},
		{name: "year back to leap day", interval: IntervalYear, anchor: date(2024, 2, 29), n: 4, want: date(2028, 2, 29)},
		{name: "zero steps", interval: IntervalMonth, anchor: date(2024, 5, 5), n: 0, want: date(2024, 5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Advance(tt.anchor, tt.n))
		})
	}
}

func TestIntervalType_AdvanceKeepsClock(t *testing.T) {
	anchor := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 30, 9, 30, 0, 0, time.UTC), IntervalMonth.Advance(anchor, 3))
}

func TestParseIntervalType(t *testing.T) {
	it, err := ParseIntervalType(" month ")
	require.NoError(t, err)
	assert.Equal(t, IntervalMonth, it)

	_, err = ParseIntervalType("fortnight")
	assert.Error(t, err)
}

func TestIntervalType_Unit(t *testing.T) {
	assert.Equal(t, "month", IntervalMonth.Unit(1))
	assert.Equal(t, "weeks", IntervalWeek.Unit(2))
	assert.Equal(t, "days", IntervalDay.Unit(0))
}
