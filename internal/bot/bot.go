package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	errors "github.com/Proton-105/worktime-bot/internal/errors"
	"github.com/Proton-105/worktime-bot/internal/idempotency"
	"github.com/Proton-105/worktime-bot/internal/middleware"
	"github.com/Proton-105/worktime-bot/internal/state"
)

// Options configures the Telegram connection.
type Options struct {
	Token            string
	Mode             string
	PollTimeout      time.Duration
	WebhookListen    string
	WebhookPublicURL string
	DedupTTL         time.Duration
	SentryEnabled    bool
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	log     *slog.Logger
}

// New builds a telegram bot instance configured according to the application settings.
// rateLimitMw and idempotencyManager may be nil.
func New(
	opts Options,
	deps handlers.Deps,
	idempotencyManager idempotency.Manager,
	rateLimitMw *middleware.RateLimitMiddleware,
	log *slog.Logger,
) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token:   opts.Token,
		OnError: func(err error, c telebot.Context) { log.Error("telebot error", slog.Any("error", err)) },
	}

	if opts.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   opts.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: opts.WebhookPublicURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: opts.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot: tb,
		router:  NewRouterFor(deps, errors.NewHandler(log, opts.SentryEnabled), idempotencyManager, opts.DedupTTL, log),
		log:     log,
	}

	if rateLimitMw != nil {
		b.telebot.Use(rateLimitMw.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)

	return b, nil
}

// NewRouterFor assembles the middleware chain and registers every command, dialog step
// and callback of the bot.
func NewRouterFor(
	deps handlers.Deps,
	errHandler *errors.Handler,
	idempotencyManager idempotency.Manager,
	dedupTTL time.Duration,
	log *slog.Logger,
) *Router {
	if log == nil {
		log = slog.Default()
	}
	if deps.Log == nil {
		deps.Log = log
	}

	dispatcher := NewDispatcher(deps.FSM)
	router := NewRouter(dispatcher, log)

	router.Use(RecoveryMiddleware(log, errHandler, deps.Translator))
	router.Use(ContextMiddleware())
	router.Use(middleware.Idempotency(idempotencyManager, dedupTTL, log))
	router.Use(ErrorHandlingMiddleware(errHandler, deps.Translator))
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Metrics)

	router.RegisterCommand(handlers.NewStartHandler(deps), CommandStart)
	router.RegisterCommand(handlers.NewRegisterHandler(deps), CommandRegister, AliasRegister)
	router.RegisterCommand(handlers.NewClockInHandler(deps), CommandClockIn, AliasClockIn)
	router.RegisterCommand(handlers.NewClockOutHandler(deps), CommandClockOut, AliasClockOut)
	router.RegisterCommand(handlers.NewManualHandler(deps), CommandManual, AliasManual)
	router.RegisterCommand(handlers.NewReportHandler(deps), CommandReport, AliasReport)
	router.RegisterCommand(handlers.NewCancelHandler(deps), CommandCancel)
	router.RegisterCommand(handlers.NewHelpHandler(deps), CommandHelp)

	dispatcher.RegisterStateHandler(state.StateManualDate, handlers.NewManualDateStep(deps))
	dispatcher.RegisterStateHandler(state.StateManualDuration, handlers.NewManualDurationStep(deps))

	router.RegisterCallback(CallbackReport, handlers.NewReportCallback(deps))

	return router
}

// Start publishes the command menu and runs the telegram bot event loop until Stop.
func (b *Bot) Start() {
	if err := b.telebot.SetCommands(menuCommands); err != nil {
		b.log.Warn("failed to publish command menu", slog.Any("error", err))
	}

	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
