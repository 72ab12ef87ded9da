// Package worktime converts between durations, fractional hours and whole hours plus minutes.
package worktime

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNegativeDuration is returned when the end of an interval precedes its start.
var ErrNegativeDuration = errors.New("end precedes start")

// HoursMinutes is an amount of work expressed as whole hours and remaining minutes.
type HoursMinutes struct {
	Hours   int
	Minutes int
}

// Fractional returns the amount as fractional hours.
func (hm HoursMinutes) Fractional() float64 {
	return float64(hm.Hours) + float64(hm.Minutes)/60
}

// String renders the amount as "2h 15m".
func (hm HoursMinutes) String() string {
	return fmt.Sprintf("%dh %dm", hm.Hours, hm.Minutes)
}

// maxHours bounds ToHoursMinutes so the conversion to int is always defined.
const maxHours = math.MaxInt32

// ToHoursMinutes splits fractional hours into whole hours and rounded minutes.
// Rounding up to a full hour carries into Hours, so Minutes is always in [0, 60).
// Amounts above maxHours, including +Inf, clamp to maxHours.
func ToHoursMinutes(fractionalHours float64) HoursMinutes {
	if fractionalHours <= 0 || math.IsNaN(fractionalHours) {
		return HoursMinutes{}
	}
	if fractionalHours >= maxHours {
		return HoursMinutes{Hours: maxHours}
	}

	hours := math.Floor(fractionalHours)
	minutes := math.Round((fractionalHours - hours) * 60)
	if minutes >= 60 {
		hours++
		minutes = 0
	}

	return HoursMinutes{Hours: int(hours), Minutes: int(minutes)}
}

// DurationToHoursMinutes truncates the interval between start and end to whole minutes.
func DurationToHoursMinutes(start, end time.Time) (HoursMinutes, error) {
	diff := end.Sub(start)
	if diff < 0 {
		return HoursMinutes{}, fmt.Errorf("%w: %s", ErrNegativeDuration, diff)
	}

	return FromDuration(diff), nil
}

// FromDuration truncates d to whole hours and minutes. Negative durations yield zero.
func FromDuration(d time.Duration) HoursMinutes {
	if d <= 0 {
		return HoursMinutes{}
	}

	hours := int(d / time.Hour)
	minutes := int((d / time.Minute) % 60)
	return HoursMinutes{Hours: hours, Minutes: minutes}
}
