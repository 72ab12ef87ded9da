// Package errors classifies failures, reports them and turns them into user replies.
package errors

import (
	"errors"
	"fmt"

	"github.com/Proton-105/worktime-bot/internal/domain"
	"github.com/Proton-105/worktime-bot/internal/lock"
	"github.com/Proton-105/worktime-bot/internal/state"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Message keys shared by several error kinds.
const (
	KeyGeneric     = "errors.generic"
	KeyBusy        = "errors.busy"
	KeyRateLimited = "errors.rate_limited"
)

// AppError is a classified failure. MessageKey names the catalog entry shown to the user
// and Args are its format arguments.
type AppError struct {
	Code       string
	Message    string
	MessageKey string
	Args       []any
	Severity   Severity
	cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func newAppError(code, key string, severity Severity, cause error) *AppError {
	msg := key
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{Code: code, Message: msg, MessageKey: key, Severity: severity, cause: cause}
}

func NewValidationError(cause error) *AppError {
	return newAppError("E100", "errors.invalid_format", SeverityLow, cause)
}

func NewStoreError(cause error) *AppError {
	return newAppError("E200", KeyGeneric, SeverityHigh, cause)
}

func NewStateError(cause error) *AppError {
	return newAppError("E400", KeyBusy, SeverityMedium, cause)
}

func NewRateLimitError(retryAfter int) *AppError {
	err := newAppError("E500", KeyRateLimited, SeverityLow, nil)
	err.Message = fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter)
	err.Args = []any{retryAfter}
	return err
}

// domainErrors maps expected outcomes of user commands to their replies.
var domainErrors = []struct {
	target error
	code   string
	key    string
}{
	{domain.ErrUserNotRegistered, "E110", "errors.not_registered"},
	{domain.ErrAlreadyRegistered, "E111", "register.already"},
	{domain.ErrAlreadyClockedIn, "E120", "clock_in.already"},
	{domain.ErrNoOpenSession, "E121", "clock_out.no_session"},
	{domain.ErrStaleSession, "E122", "clock_out.stale"},
}

// Classify converts any error into an AppError. Errors that already are AppErrors are
// returned as is; unknown errors become critical.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	// Store failures win over anything they wrap.
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return NewStoreError(err)
	}

	for _, de := range domainErrors {
		if errors.Is(err, de.target) {
			return newAppError(de.code, de.key, SeverityLow, err)
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidFormat):
		return NewValidationError(err)
	case errors.Is(err, state.ErrStateLocked), errors.Is(err, lock.ErrNotAcquired):
		return NewStateError(err)
	}

	return newAppError("E900", KeyGeneric, SeverityCritical, err)
}
