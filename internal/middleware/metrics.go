package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
	"github.com/Proton-105/worktime-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandName(c), status, time.Since(start))

		return err
	}
}

// commandName keeps label cardinality bounded: commands without arguments, callback
// identifiers without payload and "text" for everything else.
func commandName(c telebot.Context) string {
	if cb := c.Callback(); cb != nil {
		if parsed, err := keyboard.ParseCallback(cb.Data); err == nil {
			return "callback:" + parsed.Action
		}
		return "callback"
	}

	if name, ok := handlers.ParseCommand(c.Text()); ok {
		return name
	}

	return "text"
}
