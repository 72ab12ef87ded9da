package worktime

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToHoursMinutes(t *testing.T) {
	testCases := []struct {
		name     string
		input    float64
		expected HoursMinutes
	}{
		{name: "zero", input: 0, expected: HoursMinutes{}},
		{name: "whole hours", input: 7, expected: HoursMinutes{Hours: 7}},
		{name: "half hour", input: 1.5, expected: HoursMinutes{Hours: 1, Minutes: 30}},
		{name: "quarter", input: 2.25, expected: HoursMinutes{Hours: 2, Minutes: 15}},
		{name: "rounds to nearest minute", input: 1.0 + 44.6/60, expected: HoursMinutes{Hours: 1, Minutes: 45}},
		{name: "carries a rounded full hour", input: 2.9999, expected: HoursMinutes{Hours: 3, Minutes: 0}},
		{name: "negative clamps to zero", input: -1.5, expected: HoursMinutes{}},
		{name: "nan clamps to zero", input: math.NaN(), expected: HoursMinutes{}},
		{name: "huge amount clamps", input: 1e300, expected: HoursMinutes{Hours: math.MaxInt32}},
		{name: "infinity clamps", input: math.Inf(1), expected: HoursMinutes{Hours: math.MaxInt32}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToHoursMinutes(tc.input))
		})
	}
}

func TestToHoursMinutes_MinutesStayInRange(t *testing.T) {
	for i := 0; i <= 24*600; i++ {
		f := float64(i) / 600

		hm := ToHoursMinutes(f)
		if hm.Minutes < 0 || hm.Minutes >= 60 {
			t.Fatalf("ToHoursMinutes(%v) minutes out of range: %+v", f, hm)
		}
		if diff := math.Abs(hm.Fractional() - f); diff > 1.0/120+1e-9 {
			t.Fatalf("ToHoursMinutes(%v) = %+v drifts by %v hours", f, hm, diff)
		}
	}
}

func TestDurationToHoursMinutes(t *testing.T) {
	start := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		end      time.Time
		expected HoursMinutes
		wantErr  bool
	}{
		{name: "same instant", end: start, expected: HoursMinutes{}},
		{name: "two hours fifteen", end: start.Add(2*time.Hour + 15*time.Minute), expected: HoursMinutes{Hours: 2, Minutes: 15}},
		{name: "seconds are truncated", end: start.Add(59*time.Minute + 59*time.Second), expected: HoursMinutes{Minutes: 59}},
		{name: "negative interval", end: start.Add(-time.Minute), wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := DurationToHoursMinutes(start, tc.end)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrNegativeDuration))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestHoursMinutes_String(t *testing.T) {
	assert.Equal(t, "2h 15m", HoursMinutes{Hours: 2, Minutes: 15}.String())
	assert.InDelta(t, 2.25, HoursMinutes{Hours: 2, Minutes: 15}.Fractional(), 1e-9)
}
