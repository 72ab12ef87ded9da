// Package report aggregates day records into monthly and all-time summaries.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/worktime"
)

// Ordering decides the order of months in all-time reports and menus.
type Ordering string

const (
	// OrderChronological sorts by year, then month.
	OrderChronological Ordering = "chronological"
	// OrderFirstSeen keeps the order in which months first appear among the records.
	OrderFirstSeen Ordering = "first_seen"
)

// SameDayPolicy decides how several records on one date are shown in a month report.
type SameDayPolicy string

const (
	// SameDaySum adds up every record of the date.
	SameDaySum SameDayPolicy = "sum"
	// SameDayFirst shows only the first record of the date.
	SameDayFirst SameDayPolicy = "first"
)

// Options configures an Aggregator.
type Options struct {
	Ordering Ordering
	SameDay  SameDayPolicy
}

// MonthTotal is the amount worked in one calendar month.
type MonthTotal struct {
	Month   time.Month
	Year    int
	Hours   int
	Minutes int
}

// DayTotal is the amount worked on one day of a month.
type DayTotal struct {
	Day     int
	Month   time.Month
	Hours   int
	Minutes int
}

// MonthReport lists the worked days of a month and their grand total.
type MonthReport struct {
	Month        time.Month
	Year         int
	Days         []DayTotal
	TotalHours   int
	TotalMinutes int
}

// Empty reports whether the month has no recorded work.
func (r *MonthReport) Empty() bool {
	return r == nil || len(r.Days) == 0
}

// Aggregator reads day records and summarises them in one time zone.
type Aggregator struct {
	days repository.DayRepository
	loc  *time.Location
	opts Options
}

// NewAggregator builds an Aggregator. Unset options default to chronological ordering and
// summing same-day records.
func NewAggregator(days repository.DayRepository, loc *time.Location, opts Options) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if opts.Ordering == "" {
		opts.Ordering = OrderChronological
	}
	if opts.SameDay == "" {
		opts.SameDay = SameDaySum
	}
	return &Aggregator{days: days, loc: loc, opts: opts}
}

// AllTime sums every record of the user per calendar month.
func (a *Aggregator) AllTime(ctx context.Context, userID string) ([]MonthTotal, error) {
	days, err := a.days.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	keys, sums := a.bucket(days)

	totals := make([]MonthTotal, 0, len(keys))
	for _, key := range keys {
		hm := worktime.ToHoursMinutes(sums[key])
		totals = append(totals, MonthTotal{Month: key.Month, Year: key.Year, Hours: hm.Hours, Minutes: hm.Minutes})
	}
	return totals, nil
}

// MonthsWithRecords returns every month in which the user has at least one record.
func (a *Aggregator) MonthsWithRecords(ctx context.Context, userID string) ([]domain.MonthKey, error) {
	days, err := a.days.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	keys, _ := a.bucket(days)
	return keys, nil
}

// Month lists the worked days of the given month with their amounts and the month total.
func (a *Aggregator) Month(ctx context.Context, userID string, month time.Month, year int) (*MonthReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", domain.ErrInvalidFormat, month)
	}

	from, to := worktime.MonthRange(month, year, a.loc)
	days, err := a.days.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	var (
		order []int
		sums  = make(map[int]float64)
		total float64
	)
	for _, d := range days {
		total += d.Amount

		dom := d.Date.In(a.loc).Day()
		if _, seen := sums[dom]; !seen {
			order = append(order, dom)
			sums[dom] = d.Amount
			continue
		}
		if a.opts.SameDay == SameDaySum {
			sums[dom] += d.Amount
		}
	}

	if a.opts.Ordering == OrderChronological {
		sort.Ints(order)
	}

	report := &MonthReport{Month: month, Year: year, Days: make([]DayTotal, 0, len(order))}
	for _, dom := range order {
		hm := worktime.ToHoursMinutes(sums[dom])
		report.Days = append(report.Days, DayTotal{Day: dom, Month: month, Hours: hm.Hours, Minutes: hm.Minutes})
	}

	hm := worktime.ToHoursMinutes(total)
	report.TotalHours, report.TotalMinutes = hm.Hours, hm.Minutes

	return report, nil
}

func (a *Aggregator) bucket(days []*domain.Day) ([]domain.MonthKey, map[domain.MonthKey]float64) {
	var keys []domain.MonthKey
	sums := make(map[domain.MonthKey]float64)

	for _, d := range days {
		local := d.Date.In(a.loc)
		key := domain.MonthKey{Month: local.Month(), Year: local.Year()}
		if _, seen := sums[key]; !seen {
			keys = append(keys, key)
		}
		sums[key] += d.Amount
	}

	if a.opts.Ordering == OrderChronological {
		sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	}

	return keys, sums
}
