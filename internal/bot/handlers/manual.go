package handlers

import (
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/state"
	"github.com/Proton-105/worktime-bot/internal/worktime"
)

// NewManualHandler records hours by hand. "/paiva D.M.YYYY HH:MM" logs a given date,
// "/paiva HH:MM" logs today and a bare "/paiva" starts a dialog asking for both.
func NewManualHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		args := CommandArgs(c)
		switch len(args) {
		case 0:
			return d.startManualDialog(c)
		case 1:
			today := worktime.FormatDate(d.now().In(d.Sessions.Location()))
			return d.saveManual(c, u, today, args[0])
		case 2:
			return d.saveManual(c, u, args[0], args[1])
		default:
			return c.Send(d.Translator(c).T("manual.usage"))
		}
	}
}

func (d Deps) startManualDialog(c telebot.Context) error {
	if d.FSM == nil {
		return c.Send(d.Translator(c).T("manual.usage"))
	}

	ctx := RequestContext(c)
	userID := c.Sender().ID

	// A repeated /paiva restarts an unfinished dialog.
	if err := d.FSM.ClearState(ctx, userID); err != nil {
		return fmt.Errorf("reset manual dialog: %w", err)
	}
	if err := d.FSM.TransitionTo(ctx, userID, state.StateManualDate, nil); err != nil {
		return fmt.Errorf("start manual dialog: %w", err)
	}
	return c.Send(d.Translator(c).T("manual.ask_date"))
}

// NewManualDateStep accepts the date of a dialog-driven manual entry.
func NewManualDateStep(d Deps) Handler {
	return func(c telebot.Context) error {
		text := strings.TrimSpace(c.Text())
		if _, err := worktime.ParseDate(text, d.Sessions.Location()); err != nil {
			return err
		}

		ctx := RequestContext(c)
		data := map[string]interface{}{state.ContextKeyDate: text}
		if err := d.FSM.TransitionTo(ctx, c.Sender().ID, state.StateManualDuration, data); err != nil {
			return fmt.Errorf("store manual date: %w", err)
		}

		return c.Send(d.Translator(c).T("manual.ask_duration"))
	}
}

// NewManualDurationStep accepts the duration and saves the dialog-driven manual entry.
func NewManualDurationStep(d Deps) Handler {
	return func(c telebot.Context) error {
		ctx := RequestContext(c)
		userID := c.Sender().ID

		current, err := d.FSM.GetState(ctx, userID)
		if err != nil {
			return fmt.Errorf("load manual dialog: %w", err)
		}

		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		if err := d.saveManual(c, u, current.String(state.ContextKeyDate), strings.TrimSpace(c.Text())); err != nil {
			return err
		}

		if err := d.FSM.ClearState(ctx, userID); err != nil {
			d.logger().Warn("failed to clear manual dialog", slog.Int64("telegram_id", userID), slog.Any("error", err))
		}
		return nil
	}
}

func (d Deps) saveManual(c telebot.Context, u *domain.User, date, duration string) error {
	result, err := d.Sessions.ManualEntry(RequestContext(c), u.ID, date, duration)
	if err != nil {
		return err
	}

	return c.Send(d.Translator(c).Tf("manual.saved",
		worktime.FormatDate(result.Day.Date.In(d.Sessions.Location())),
		result.Worked.Hours,
		result.Worked.Minutes,
	))
}
