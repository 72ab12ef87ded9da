// Package metrics exposes the Prometheus instruments of the bot.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/worktime-bot/internal/state"
)

// Session event labels.
const (
	EventClockIn      = "clock_in"
	EventClockOut     = "clock_out"
	EventManual       = "manual"
	EventStaleDeleted = "stale_deleted"
	EventSwept        = "swept"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of dialog state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	sessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktime_session_events_total",
			Help: "Work session lifecycle events",
		},
		[]string{"event"},
	)
	loggedHours = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worktime_logged_hours",
			Help:    "Hours recorded per closed work session",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10, 12, 16, 24},
		},
		[]string{"kind"},
	)
	openSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktime_open_sessions",
			Help: "Current number of open automatic work sessions",
		},
	)
	usersByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_state",
			Help: "Number of users per dialog state",
		},
		[]string{"state"},
	)
	rateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_checks_total",
			Help: "Rate limiter decisions",
		},
		[]string{"result"},
	)
	storeCircuitOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_circuit_open",
			Help: "1 while the storage circuit breaker rejects calls",
		},
	)
	duplicateUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_updates_total",
			Help: "Telegram updates dropped because they were already processed",
		},
	)
)

var trackedStates = []state.State{
	state.StateIdle,
	state.StateManualDate,
	state.StateManualDuration,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks dialog FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetStoreCircuitOpen reports whether the storage circuit breaker is open.
func SetStoreCircuitOpen(open bool) {
	if open {
		storeCircuitOpen.Set(1)
		return
	}
	storeCircuitOpen.Set(0)
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// RecordSessionEvent counts n occurrences of a session lifecycle event.
func RecordSessionEvent(event string, n int) {
	if n <= 0 {
		return
	}
	sessionEventsTotal.WithLabelValues(event).Add(float64(n))
}

// ObserveLoggedHours records the amount of a closed session.
func ObserveLoggedHours(kind string, hours float64) {
	loggedHours.WithLabelValues(kind).Observe(hours)
}

// RecordRateLimit counts an allow or deny decision.
func RecordRateLimit(allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	rateLimitChecksTotal.WithLabelValues(result).Inc()
}

// RecordDuplicateUpdate counts a dropped repeated update.
func RecordDuplicateUpdate() {
	duplicateUpdatesTotal.Inc()
}

// SetOpenSessions updates the open sessions gauge.
func SetOpenSessions(count int64) {
	openSessions.Set(float64(count))
}

// SetUsersByState updates the gauge for the given state.
func SetUsersByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	usersByState.WithLabelValues(state).Set(float64(count))
}

// OpenSessionCounter reports the number of open automatic sessions.
type OpenSessionCounter interface {
	CountOpen(ctx context.Context) (int64, error)
}

// StateLister returns every persisted dialog state.
type StateLister interface {
	GetAllStates(ctx context.Context) ([]*state.UserState, error)
}

// Collector periodically refreshes the gauges that mirror stored data.
type Collector struct {
	sessions OpenSessionCounter
	states   StateLister
	interval time.Duration
	log      *slog.Logger
}

// NewCollector builds a collector. Either source may be nil.
func NewCollector(sessions OpenSessionCounter, states StateLister, interval time.Duration, log *slog.Logger) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Collector{sessions: sessions, states: states, interval: interval, log: log}
}

// Run polls the sources until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	if c == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	if c.sessions != nil {
		n, err := c.sessions.CountOpen(ctx)
		if err != nil {
			c.log.Warn("collect open sessions failed", slog.Any("error", err))
		} else {
			SetOpenSessions(n)
		}
	}

	if c.states == nil {
		return
	}

	states, err := c.states.GetAllStates(ctx)
	if err != nil {
		c.log.Warn("collect dialog states failed", slog.Any("error", err))
		return
	}

	stateCounts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
		}
		stateCounts[label]++
	}

	usersByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetUsersByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetUsersByState(label, count)
	}
}
