package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/report"
)

// NewReportHandler shows the report selection menu.
func NewReportHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		months, err := d.Reports.MonthsWithRecords(RequestContext(c), u.ID)
		if err != nil {
			return err
		}

		tr := d.Translator(c)
		markup, err := d.Keyboard.ReportMenu(tr, report.MenuOptions(months))
		if err != nil {
			return err
		}

		return c.Send(tr.T("report.choose"), markup)
	}
}

// NewReportCallback answers a report menu button: all-time totals, one month, or cancel,
// which removes the menu.
func NewReportCallback(d Deps) CallbackHandler {
	return func(c telebot.Context) error {
		cb, err := keyboard.ParseCallback(c.Callback().Data)
		if err != nil {
			return err
		}
		payload := cb.Payload

		// The spinner on the pressed button stops regardless of the outcome.
		defer func() { _ = c.Respond() }()

		if payload == keyboard.ReportCancel {
			return c.Delete()
		}

		u, err := d.currentUser(c)
		if err != nil {
			return err
		}

		tr := d.Translator(c)
		ctx := RequestContext(c)

		if payload == keyboard.ReportAll {
			totals, err := d.Reports.AllTime(ctx, u.ID)
			if err != nil {
				return err
			}
			return c.Send(formatAllTime(tr, totals))
		}

		key, err := keyboard.DecodeMonth(payload)
		if err != nil {
			return err
		}

		monthReport, err := d.Reports.Month(ctx, u.ID, key.Month, key.Year)
		if err != nil {
			return err
		}
		return c.Send(formatMonth(tr, monthReport))
	}
}

func formatAllTime(tr i18n.Translator, totals []report.MonthTotal) string {
	if len(totals) == 0 {
		return tr.T("report.empty")
	}

	lines := make([]string, 0, len(totals)+1)
	lines = append(lines, tr.T("report.all_title"))
	for _, m := range totals {
		lines = append(lines, tr.Tf("report.all_row", int(m.Month), m.Year, m.Hours, m.Minutes))
	}
	return strings.Join(lines, "\n")
}

func formatMonth(tr i18n.Translator, r *report.MonthReport) string {
	if r.Empty() {
		return tr.T("report.empty")
	}

	lines := make([]string, 0, len(r.Days)+2)
	lines = append(lines, tr.Tf("report.month_title", keyboard.MonthName(tr, r.Month), r.Year))
	for _, day := range r.Days {
		lines = append(lines, tr.Tf("report.day_row", day.Day, int(day.Month), day.Hours, day.Minutes))
	}
	lines = append(lines, tr.Tf("report.total", r.TotalHours, r.TotalMinutes))
	return strings.Join(lines, "\n")
}
