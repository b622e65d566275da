package callback

import "github.com/ghettovoice/clickback/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
)

// Registry errors.
const (
	// ErrRegistryClosed is returned when registering on a closed registry.
	ErrRegistryClosed Error = "callback registry closed"
	// ErrHandleCollision is returned when the handle factory produced a handle
	// that is still held by a live entry.
	ErrHandleCollision Error = "callback handle collision"
)

// Command errors.
const (
	// ErrInvalidCommand is returned when a command does not match the codec grammar.
	ErrInvalidCommand Error = "invalid callback command"
)

// Error represents a callback error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}
