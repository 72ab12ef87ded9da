package keyboard

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/report"
)

// ActionReport is the callback action of every report menu button.
const ActionReport = "report"

// Report menu payloads besides YYYY-MM months.
const (
	ReportAll    = "all"
	ReportCancel = "cancel"
)

const monthsPerRow = 3

// Builder creates the inline keyboards of the bot.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// ReportMenu renders the report selection menu: all-time on the first row, months in rows
// of three and cancel on the last row.
func (b *Builder) ReportMenu(t i18n.Translator, options []report.MenuOption) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	months := make([]InlineButton, 0, len(options))

	for _, opt := range options {
		switch opt.Choice {
		case report.ChoiceAll:
			kb.AddRow(reportButton(t.T("report.all_button"), ReportAll))
		case report.ChoiceMonth:
			months = append(months, reportButton(MonthLabel(t, opt.Month), EncodeMonth(opt.Month)))
		}
	}

	kb.AddGrid(monthsPerRow, months...)
	kb.AddRow(reportButton(t.T("report.cancel_button"), ReportCancel))

	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build report menu", slog.Int("options", len(options)), slog.Any("error", err))
		return nil, err
	}
	return markup, nil
}

func reportButton(text, payload string) InlineButton {
	return InlineButton{Text: text, Callback: Callback{Action: ActionReport, Payload: payload}}
}

// MonthName returns the localized name of m.
func MonthName(t i18n.Translator, m time.Month) string {
	return t.T("months." + strconv.Itoa(int(m)))
}

// MonthLabel renders a month button such as "Maaliskuu 2024".
func MonthLabel(t i18n.Translator, key domain.MonthKey) string {
	return fmt.Sprintf("%s %d", MonthName(t, key.Month), key.Year)
}

// EncodeMonth renders key as YYYY-MM.
func EncodeMonth(key domain.MonthKey) string {
	return fmt.Sprintf("%04d-%02d", key.Year, int(key.Month))
}

// DecodeMonth parses a YYYY-MM payload.
func DecodeMonth(data string) (domain.MonthKey, error) {
	parsed, err := time.Parse("2006-01", data)
	if err != nil {
		return domain.MonthKey{}, fmt.Errorf("%w: month %q", domain.ErrInvalidFormat, data)
	}
	return domain.MonthKey{Month: parsed.Month(), Year: parsed.Year()}, nil
}
