package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// MaxCallbackBytes is the largest callback_data Telegram accepts.
const MaxCallbackBytes = 64

const callbackSeparator = ":"

var (
	ErrEmptyCallback   = errors.New("callback data is empty")
	ErrCallbackTooLong = errors.New("callback data is too long")
)

// Callback is inline button data: Action picks the handler, Payload is handed to it.
// Encoded as "action" or "action:payload".
type Callback struct {
	Action  string
	Payload string
}

func (cb Callback) Encode() (string, error) {
	if cb.Action == "" || strings.Contains(cb.Action, callbackSeparator) {
		return "", fmt.Errorf("keyboard: invalid callback action %q", cb.Action)
	}

	encoded := cb.Action
	if cb.Payload != "" {
		encoded += callbackSeparator + cb.Payload
	}
	if len(encoded) > MaxCallbackBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrCallbackTooLong, len(encoded), MaxCallbackBytes)
	}
	return encoded, nil
}

// ParseCallback splits data at the first separator. Payloads may contain further separators.
func ParseCallback(data string) (Callback, error) {
	if data == "" {
		return Callback{}, ErrEmptyCallback
	}

	action, payload, _ := strings.Cut(data, callbackSeparator)
	return Callback{Action: action, Payload: payload}, nil
}
