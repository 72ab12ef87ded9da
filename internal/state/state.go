package state

import "time"

// State represents a dialog state of the manual-entry conversation.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateManualDate indicates that the bot waits for the date of a manual entry.
	StateManualDate State = "manual_date"
	// StateManualDuration indicates that the bot waits for the worked hours of a manual entry.
	StateManualDuration State = "manual_duration"
)

// ContextKeyDate holds the already entered D.M.YYYY date while waiting for the duration.
const ContextKeyDate = "date"

// UserState captures the current dialog state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// String returns the string value stored under key in the state context.
func (s *UserState) String(key string) string {
	if s == nil || s.Context == nil {
		return ""
	}
	v, _ := s.Context[key].(string)
	return v
}
