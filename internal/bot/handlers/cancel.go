package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/state"
)

// NewCancelHandler aborts an unfinished manual-entry dialog.
func NewCancelHandler(d Deps) Handler {
	log := d.logger()

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		tr := d.Translator(c)
		if d.FSM == nil {
			return c.Send(tr.T("cancel.nothing"))
		}

		ctx := RequestContext(c)
		userID := c.Sender().ID

		current, err := d.FSM.GetState(ctx, userID)
		switch {
		case errors.Is(err, state.ErrStateNotFound):
			return c.Send(tr.T("cancel.nothing"))
		case err != nil:
			return err
		case current.CurrentState == state.StateIdle:
			return c.Send(tr.T("cancel.nothing"))
		}

		if err := d.FSM.ClearState(ctx, userID); err != nil {
			log.Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(tr.T("cancel.done"))
	}
}
