package callback

//go:generate go tool mockgen -source=handle.go -destination=../internal/testutil/cbmock/handle.go -package=cbmock HandleFactory

import (
	"log/slog"

	"braces.dev/errtrace"
	"github.com/google/uuid"
)

// Handle is an opaque identifier of a registered callback.
// The zero Handle never refers to a registered callback.
type Handle uuid.UUID

// handleLen is the length of xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
const handleLen = 36

// ParseHandle parses the textual form of a handle as produced by [Handle.String].
// Only the canonical 36 character form is accepted.
func ParseHandle(s string) (Handle, error) {
	if len(s) != handleLen {
		return Handle{}, errtrace.Wrap(NewInvalidArgumentError("malformed handle %q", s))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, errtrace.Wrap(NewInvalidArgumentError(err))
	}
	return Handle(id), nil
}

// String returns the canonical textual form of the handle.
func (h Handle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// MarshalText implements [encoding.TextMarshaler].
func (h Handle) MarshalText() ([]byte, error) {
	return errtrace.Wrap2(uuid.UUID(h).MarshalText())
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (h *Handle) UnmarshalText(data []byte) error {
	v, err := ParseHandle(string(data))
	if err != nil {
		return errtrace.Wrap(err)
	}
	*h = v
	return nil
}

func (h Handle) LogValue() slog.Value { return slog.StringValue(h.String()) }

// HandleFactory produces handles for new registrations.
// Implementations must never return a handle that is still in use by the registry.
type HandleFactory interface {
	NewHandle() Handle
}

// HandleFactoryFunc is an adapter to allow the use of ordinary functions as [HandleFactory].
type HandleFactoryFunc func() Handle

func (f HandleFactoryFunc) NewHandle() Handle { return f() }

// UUIDHandleFactory produces random (version 4) UUID handles.
type UUIDHandleFactory struct{}

func (UUIDHandleFactory) NewHandle() Handle { return Handle(uuid.New()) }
