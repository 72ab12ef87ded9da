package domain

import "errors"

var (
	// ErrUserNotRegistered indicates the sender has not run the registration command.
	ErrUserNotRegistered = errors.New("user not registered")
	// ErrAlreadyRegistered indicates a second registration attempt.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrAlreadyClockedIn indicates an open automatic session already exists.
	ErrAlreadyClockedIn = errors.New("already clocked in")
	// ErrNoOpenSession indicates clock-out without a preceding clock-in.
	ErrNoOpenSession = errors.New("no open session")
	// ErrStaleSession indicates the open session started on an earlier day and was discarded.
	ErrStaleSession = errors.New("open session is stale")
	// ErrInvalidFormat indicates a malformed date or duration argument.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrStoreUnavailable indicates the document store failed to serve a request.
	ErrStoreUnavailable = errors.New("store unavailable")
)
