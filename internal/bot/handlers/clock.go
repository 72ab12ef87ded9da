package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// NewClockInHandler opens an automatic session for the sender.
func NewClockInHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		if _, err := d.Sessions.ClockIn(RequestContext(c), u.ID, d.now()); err != nil {
			return err
		}

		return c.Send(d.Translator(c).T("clock_in.ok"))
	}
}

// NewClockOutHandler closes the sender's open session and reports the worked time.
func NewClockOutHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		result, err := d.Sessions.ClockOut(RequestContext(c), u.ID, d.now())
		if err != nil {
			return err
		}

		tr := d.Translator(c)
		if err := c.Send(tr.T("clock_out.ok")); err != nil {
			return err
		}
		return c.Send(tr.Tf("worked", result.Worked.Hours, result.Worked.Minutes))
	}
}
