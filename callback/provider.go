package callback

import (
	"context"
	"strings"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/clickback/internal/errorutil"
)

// Defaults for callbacks created by a [Provider] when the caller has no better idea.
const (
	DefaultLifetime = 12 * time.Hour
	DefaultUses     = 1
)

// DefaultCommandPrefix is the command prefix used by the zero [CommandCodec].
const DefaultCommandPrefix = "/clickback callback"

// CommandCodec embeds handles into textual commands of the form "<prefix> <handle>"
// and extracts them back.
type CommandCodec struct {
	// Prefix precedes the handle in the command.
	// If empty, [DefaultCommandPrefix] is used.
	Prefix string
}

func (c CommandCodec) prefix() string {
	if p := strings.TrimSpace(c.Prefix); p != "" {
		return p
	}
	return DefaultCommandPrefix
}

// Format returns the command that runs the callback registered under h.
func (c CommandCodec) Format(h Handle) string {
	return c.prefix() + " " + h.String()
}

// Parse extracts the handle from a command produced by [CommandCodec.Format].
// Surrounding whitespace and repeated blanks between tokens are tolerated.
func (c CommandCodec) Parse(cmd string) (Handle, error) {
	want := strings.Fields(c.prefix())
	got := strings.Fields(cmd)
	if len(got) != len(want)+1 {
		return Handle{}, errtrace.Wrap(newInvalidCommandError("unexpected number of tokens in %q", cmd))
	}
	for i, tok := range want {
		if got[i] != tok {
			return Handle{}, errtrace.Wrap(newInvalidCommandError("unexpected token %q in %q", got[i], cmd))
		}
	}

	h, err := ParseHandle(got[len(want)])
	if err != nil {
		return Handle{}, errtrace.Wrap(newInvalidCommandError(err))
	}
	return h, nil
}

func newInvalidCommandError(args ...any) error {
	return NewInvalidArgumentError(errorutil.NewWrapperError(ErrInvalidCommand, args...)) //errtrace:skip
}

// Provider binds a [Registry] to a [CommandCodec]: it turns callbacks into commands
// and runs the callbacks behind incoming commands.
type Provider[A any] struct {
	Registry *Registry[A]
	Codec    CommandCodec
}

// NewProvider creates a new [Provider].
func NewProvider[A any](reg *Registry[A], codec CommandCodec) *Provider[A] {
	return &Provider[A]{Registry: reg, Codec: codec}
}

// Create registers action and returns the command that runs it.
func (p *Provider[A]) Create(
	ctx context.Context,
	action Action[A],
	lifetime time.Duration,
	uses int,
) (string, error) {
	h, err := p.Registry.Register(ctx, action, lifetime, uses)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	return p.Codec.Format(h), nil
}

// Dispatch runs the callback referenced by cmd with aud.
// A malformed command is reported as an error wrapping [ErrInvalidCommand];
// an unknown or dead callback is reported as false without an error.
func (p *Provider[A]) Dispatch(ctx context.Context, aud A, cmd string) (bool, error) {
	h, err := p.Codec.Parse(cmd)
	if err != nil {
		return false, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(p.Registry.Run(ctx, aud, h))
}
