package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/i18n"
)

// MainMenu builds a localized reply keyboard whose buttons send the main commands.
func MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	lookup := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	markup.Reply(
		markup.Row(markup.Text(lookup("menu.clock_in")), markup.Text(lookup("menu.clock_out"))),
		markup.Row(markup.Text(lookup("menu.manual")), markup.Text(lookup("menu.report"))),
		markup.Row(markup.Text(lookup("menu.help"))),
	)

	return markup
}
