package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/report"
	"github.com/Proton-105/worktime-bot/internal/session"
	"github.com/Proton-105/worktime-bot/internal/state"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// ContextKey is the telebot.Context slot holding the request context.
const ContextKey = "request_ctx"

// Users registers and resolves bot users.
type Users interface {
	Register(ctx context.Context, telegramID int64, name string) (*domain.User, error)
	Get(ctx context.Context, telegramID int64) (*domain.User, error)
}

// Sessions records work time.
type Sessions interface {
	ClockIn(ctx context.Context, userID string, now time.Time) (*domain.Log, error)
	ClockOut(ctx context.Context, userID string, now time.Time) (*session.Result, error)
	ManualEntry(ctx context.Context, userID, date, duration string) (*session.Result, error)
	Location() *time.Location
}

// Reports summarises recorded work.
type Reports interface {
	AllTime(ctx context.Context, userID string) ([]report.MonthTotal, error)
	MonthsWithRecords(ctx context.Context, userID string) ([]domain.MonthKey, error)
	Month(ctx context.Context, userID string, month time.Month, year int) (*report.MonthReport, error)
}

// Deps carries what the command handlers need.
type Deps struct {
	Users    Users
	Sessions Sessions
	Reports  Reports
	FSM      state.StateMachine
	I18n     *i18n.Manager
	Keyboard *keyboard.Builder
	Log      *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Translator picks the catalog matching the sender's Telegram language.
func (d Deps) Translator(c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return d.I18n.Translator(lang)
}

// RequestContext returns the context stored by the bot middleware, or a background context.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(ContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// CommandArgs returns the whitespace separated words after the command.
func CommandArgs(c telebot.Context) []string {
	fields := strings.Fields(c.Text())
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// currentUser resolves the sender, failing with domain.ErrUserNotRegistered for strangers.
func (d Deps) currentUser(c telebot.Context) (*domain.User, error) {
	if c.Sender() == nil {
		return nil, domain.ErrUserNotRegistered
	}
	return d.Users.Get(RequestContext(c), c.Sender().ID)
}

// ParseCommand extracts the lower-cased command of a message such as "/paiva@worktime_bot 7:30".
func ParseCommand(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}

	name, _, _ := strings.Cut(fields[0], "@")
	if name == "/" {
		return "", false
	}
	return strings.ToLower(name), true
}
