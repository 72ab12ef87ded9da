package domain

import "time"

// LogKind tells how a work session was recorded.
type LogKind string

const (
	// LogKindAutomatic marks sessions opened and closed with clock-in/clock-out.
	LogKindAutomatic LogKind = "automatic"
	// LogKindManual marks sessions entered by hand with a date and a duration.
	LogKindManual LogKind = "manual"
)

// Log is a single work session. Out is nil while the session is open.
type Log struct {
	ID     string
	UserID string
	In     time.Time
	Out    *time.Time
	Kind   LogKind
}

// IsOpen reports whether the session has not been closed yet.
func (l *Log) IsOpen() bool {
	return l != nil && l.Out == nil
}

// Day is the billable amount of work, in fractional hours, produced by one closed session.
type Day struct {
	ID        string
	UserID    string
	LogID     string
	Date      time.Time
	Amount    float64
	CreatedAt time.Time
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Month time.Month
	Year  int
}

// Before reports whether k is an earlier month than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}
