package worktime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
)

// ParseDate parses a day-month-year date such as "15.3.2024" or "05.03.2024" and returns
// midnight of that day in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: date %q, expected D.M.YYYY", domain.ErrInvalidFormat, value)
	}

	day, errDay := atoiDigits(parts[0])
	month, errMonth := atoiDigits(parts[1])
	year, errYear := atoiDigits(parts[2])
	if errDay != nil || errMonth != nil || errYear != nil || len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("%w: date %q, expected D.M.YYYY", domain.ErrInvalidFormat, value)
	}

	if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("%w: date %q is not a calendar day", domain.ErrInvalidFormat, value)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), nil
}

// MaxDayHours caps a single manual entry at one full day.
const MaxDayHours = 24

// ParseDuration parses an "HH:MM" amount of work such as "2:30" or "07:45", at most "24:00".
func ParseDuration(value string) (HoursMinutes, error) {
	hoursPart, minutesPart, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || hoursPart == "" || len(minutesPart) != 2 {
		return HoursMinutes{}, fmt.Errorf("%w: time %q, expected HH:MM", domain.ErrInvalidFormat, value)
	}

	hours, errHours := atoiDigits(hoursPart)
	minutes, errMinutes := atoiDigits(minutesPart)
	if errHours != nil || errMinutes != nil || minutes > 59 {
		return HoursMinutes{}, fmt.Errorf("%w: time %q, expected HH:MM", domain.ErrInvalidFormat, value)
	}
	if hours > MaxDayHours || (hours == MaxDayHours && minutes > 0) {
		return HoursMinutes{}, fmt.Errorf("%w: time %q exceeds %d:00", domain.ErrInvalidFormat, value, MaxDayHours)
	}

	return HoursMinutes{Hours: hours, Minutes: minutes}, nil
}

// FormatDate renders t as D.M.YYYY, the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d.%d.%d", t.Day(), int(t.Month()), t.Year())
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// MonthRange returns the first instant of the month and the last instant of its last day.
func MonthRange(month time.Month, year int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, 0).Add(-time.Millisecond)
	return first, last
}

// atoiDigits converts an unsigned decimal made of ASCII digits only.
func atoiDigits(s string) (int, error) {
	if s == "" || len(s) > 9 {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
