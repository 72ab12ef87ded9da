package domain

import "time"

// User represents a registered bot user.
type User struct {
	ID         string
	TelegramID int64
	Name       string
	CreatedAt  time.Time
}
