package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
)

// Command constants for Telegram bot commands. Finnish names come first, English aliases
// route to the same handlers.
const (
	CommandStart    = "/start"
	CommandRegister = "/aloita"
	CommandClockIn  = "/sisaan"
	CommandClockOut = "/ulos"
	CommandManual   = "/paiva"
	CommandReport   = "/raportti"
	CommandCancel   = "/cancel"
	CommandHelp     = "/help"

	AliasRegister = "/register"
	AliasClockIn  = "/in"
	AliasClockOut = "/out"
	AliasManual   = "/day"
	AliasReport   = "/report"
)

// CallbackReport selects the report menu callback handler.
const CallbackReport = keyboard.ActionReport

// menuCommands is published to Telegram as the command menu.
var menuCommands = []telebot.Command{
	{Text: "aloita", Description: "Ota botti käyttöön"},
	{Text: "sisaan", Description: "Kirjaudu sisään"},
	{Text: "ulos", Description: "Kirjaudu ulos"},
	{Text: "paiva", Description: "Lisää tunnit käsin"},
	{Text: "raportti", Description: "Näytä raportti"},
	{Text: "cancel", Description: "Peru kesken oleva kirjaus"},
	{Text: "help", Description: "Komennot"},
}
