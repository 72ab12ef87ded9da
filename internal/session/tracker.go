// Package session records work sessions: clock-in, clock-out, manual entries and the
// removal of sessions left open over midnight.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/lock"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/worktime"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

const lockKeyPrefix = "session:"

// Result describes a closed session and the day record it produced.
type Result struct {
	Log    *domain.Log
	Day    *domain.Day
	Worked worktime.HoursMinutes
}

// Tracker owns the automatic session state machine of every user:
// no session, open after ClockIn, closed after ClockOut. Open sessions that started on an
// earlier day are deleted instead of closed.
type Tracker struct {
	logs   repository.LogRepository
	days   repository.DayRepository
	locker lock.Locker
	loc    *time.Location
	log    *slog.Logger
}

// NewTracker wires a Tracker. A nil locker falls back to an in-process one and a nil
// location to time.Local.
func NewTracker(logs repository.LogRepository, days repository.DayRepository, locker lock.Locker, loc *time.Location, log *slog.Logger) *Tracker {
	if locker == nil {
		locker = lock.NewMemoryLocker(0)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{
		logs:   logs,
		days:   days,
		locker: locker,
		loc:    loc,
		log:    log.With(slog.String("component", "session_tracker")),
	}
}

// Location returns the time zone calendar days are evaluated in.
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// ClockIn opens an automatic session starting at now.
func (t *Tracker) ClockIn(ctx context.Context, userID string, now time.Time) (*domain.Log, error) {
	var entry *domain.Log

	err := lock.WithLock(ctx, t.locker, lockKeyPrefix+userID, func(ctx context.Context) error {
		open, err := t.logs.FindOpen(ctx, userID)
		switch {
		case err == nil && open != nil:
			return domain.ErrAlreadyClockedIn
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("find open session: %w", err)
		}

		entry = &domain.Log{UserID: userID, In: now, Kind: domain.LogKindAutomatic}
		if err := t.logs.Create(ctx, entry); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.ErrAlreadyClockedIn
			}
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionEvent(metrics.EventClockIn, 1)
	t.log.Info("clocked in", slog.String("user_id", userID), slog.String("log_id", entry.ID))

	return entry, nil
}

// ClockOut closes the open automatic session at now and records its day. A session that
// started on another calendar day is deleted and domain.ErrStaleSession is returned.
func (t *Tracker) ClockOut(ctx context.Context, userID string, now time.Time) (*Result, error) {
	var result *Result

	err := lock.WithLock(ctx, t.locker, lockKeyPrefix+userID, func(ctx context.Context) error {
		open, err := t.logs.FindOpen(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrNoOpenSession
			}
			return fmt.Errorf("find open session: %w", err)
		}

		if !worktime.SameDay(open.In, now, t.loc) {
			if err := t.logs.Delete(ctx, open.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("delete stale session: %w", err)
			}
			metrics.RecordSessionEvent(metrics.EventStaleDeleted, 1)
			t.log.Info("stale session deleted",
				slog.String("user_id", userID),
				slog.String("log_id", open.ID),
				slog.Time("in", open.In),
			)
			return domain.ErrStaleSession
		}

		worked, err := worktime.DurationToHoursMinutes(open.In, now)
		if err != nil {
			return fmt.Errorf("session %s: %w", open.ID, err)
		}

		if err := t.logs.Close(ctx, open.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrNoOpenSession
			}
			return fmt.Errorf("close session: %w", err)
		}
		out := now
		open.Out = &out

		day, err := t.recordDay(ctx, open, now, worked)
		if err != nil {
			return err
		}

		result = &Result{Log: open, Day: day, Worked: worked}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionEvent(metrics.EventClockOut, 1)
	metrics.ObserveLoggedHours(string(domain.LogKindAutomatic), result.Day.Amount)
	t.log.Info("clocked out",
		slog.String("user_id", userID),
		slog.String("log_id", result.Log.ID),
		slog.String("worked", result.Worked.String()),
	)

	return result, nil
}

// ManualEntry records hours worked on a date given as D.M.YYYY, with the duration as HH:MM.
// The session starts at midnight of that date in the tracker's location.
func (t *Tracker) ManualEntry(ctx context.Context, userID, date, duration string) (*Result, error) {
	day, err := worktime.ParseDate(date, t.loc)
	if err != nil {
		return nil, err
	}
	worked, err := worktime.ParseDuration(duration)
	if err != nil {
		return nil, err
	}

	start := worktime.StartOfDay(day, t.loc)
	end := start.Add(time.Duration(worked.Hours)*time.Hour + time.Duration(worked.Minutes)*time.Minute)

	var result *Result
	err = lock.WithLock(ctx, t.locker, lockKeyPrefix+userID, func(ctx context.Context) error {
		entry := &domain.Log{UserID: userID, In: start, Out: &end, Kind: domain.LogKindManual}
		if err := t.logs.Create(ctx, entry); err != nil {
			return fmt.Errorf("create manual session: %w", err)
		}

		record, err := t.recordDay(ctx, entry, start, worked)
		if err != nil {
			return err
		}

		result = &Result{Log: entry, Day: record, Worked: worked}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionEvent(metrics.EventManual, 1)
	metrics.ObserveLoggedHours(string(domain.LogKindManual), result.Day.Amount)
	t.log.Info("manual entry recorded",
		slog.String("user_id", userID),
		slog.String("log_id", result.Log.ID),
		slog.String("date", worktime.FormatDate(start)),
		slog.String("worked", worked.String()),
	)

	return result, nil
}

// SweepStale deletes every open automatic session that started before the calendar day of
// now and returns how many were removed.
func (t *Tracker) SweepStale(ctx context.Context, now time.Time) (int, error) {
	cutoff := worktime.StartOfDay(now, t.loc)

	stale, err := t.logs.ListOpenBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	var (
		deleted int
		errs    []error
	)
	for _, entry := range stale {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		err := lock.WithLock(ctx, t.locker, lockKeyPrefix+entry.UserID, func(ctx context.Context) error {
			return t.logs.Delete(ctx, entry.ID)
		})
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, repository.ErrNotFound):
		default:
			t.log.Warn("failed to sweep stale session",
				slog.String("user_id", entry.UserID),
				slog.String("log_id", entry.ID),
				slog.Any("error", err),
			)
			errs = append(errs, err)
		}
	}

	metrics.RecordSessionEvent(metrics.EventSwept, deleted)
	t.log.Info("stale sessions swept", slog.Int("found", len(stale)), slog.Int("deleted", deleted))

	return deleted, errors.Join(errs...)
}

func (t *Tracker) recordDay(ctx context.Context, entry *domain.Log, date time.Time, worked worktime.HoursMinutes) (*domain.Day, error) {
	day := &domain.Day{
		UserID: entry.UserID,
		LogID:  entry.ID,
		Date:   date,
		Amount: worked.Fractional(),
	}

	if err := t.days.Create(ctx, day); err != nil {
		t.log.Error("session saved but day record failed",
			slog.String("user_id", entry.UserID),
			slog.String("log_id", entry.ID),
			slog.String("kind", string(entry.Kind)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("create day record: %w", err)
	}

	return day, nil
}
