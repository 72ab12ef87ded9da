package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
)

// NewStartHandler greets the user and shows the command keyboard.
func NewStartHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		tr := d.Translator(c)
		return c.Send(tr.T("start.welcome"), keyboard.MainMenu(tr))
	}
}

// NewRegisterHandler registers the sender under their Telegram first name.
func NewRegisterHandler(d Deps) Handler {
	log := d.logger()

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("register handler invoked without sender")
			return nil
		}

		u, err := d.Users.Register(RequestContext(c), sender.ID, sender.FirstName)
		if err != nil {
			return err
		}

		tr := d.Translator(c)
		return c.Send(tr.Tf("register.welcome", u.Name), keyboard.MainMenu(tr))
	}
}

// NewHelpHandler lists the commands.
func NewHelpHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		return c.Send(d.Translator(c).T("help.text"))
	}
}
