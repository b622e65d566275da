package callback_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghettovoice/clickback/callback"
)

func TestCommandCodec_FormatParse(t *testing.T) {
	t.Parallel()

	h := callback.UUIDHandleFactory{}.NewHandle()

	cases := []struct {
		name  string
		codec callback.CommandCodec
		want  string
	}{
		{"default prefix", callback.CommandCodec{}, "/clickback callback " + h.String()},
		{"custom prefix", callback.CommandCodec{Prefix: "/velocity callback"}, "/velocity callback " + h.String()},
		{"single token prefix", callback.CommandCodec{Prefix: " !cb "}, "!cb " + h.String()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cmd := c.codec.Format(h)
			if cmd != c.want {
				t.Fatalf("codec.Format() = %q, want %q", cmd, c.want)
			}

			got, err := c.codec.Parse("  " + strings.ReplaceAll(cmd, " ", "   ") + "\n")
			if err != nil {
				t.Fatalf("codec.Parse(%q) error = %v, want nil", cmd, err)
			}
			if got != h {
				t.Errorf("codec.Parse(%q) = %v, want %v", cmd, got, h)
			}
		})
	}
}

func TestCommandCodec_Parse_Invalid(t *testing.T) {
	t.Parallel()

	var codec callback.CommandCodec
	h := callback.UUIDHandleFactory{}.NewHandle()

	for _, cmd := range []string{
		"",
		"/clickback callback",
		"/clickback " + h.String(),
		"/other callback " + h.String(),
		"/clickback callback " + h.String() + " extra",
		"/clickback callback not-a-uuid",
		"/clickback callback urn:uuid:" + h.String(),
		"/clickback callback {" + h.String() + "}",
		"/clickback callback " + strings.ReplaceAll(h.String(), "-", ""),
	} {
		_, err := codec.Parse(cmd)
		if !errors.Is(err, callback.ErrInvalidCommand) {
			t.Errorf("codec.Parse(%q) error = %v, want %v", cmd, err, callback.ErrInvalidCommand)
		}
		if !errors.Is(err, callback.ErrInvalidArgument) {
			t.Errorf("codec.Parse(%q) error = %v, want %v", cmd, err, callback.ErrInvalidArgument)
		}
	}
}

func TestProvider_CreateDispatch(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	p := callback.NewProvider(reg, callback.CommandCodec{Prefix: "/velocity callback"})

	var calls atomic.Int64
	var audience atomic.Value
	cmd, err := p.Create(t.Context(), func(_ context.Context, aud string) error {
		calls.Add(1)
		audience.Store(aud)
		return nil
	}, callback.DefaultLifetime, callback.DefaultUses)
	if err != nil {
		t.Fatalf("p.Create() error = %v, want nil", err)
	}
	if !strings.HasPrefix(cmd, "/velocity callback ") {
		t.Fatalf("p.Create() = %q, want the codec prefix", cmd)
	}

	if ran, err := p.Dispatch(t.Context(), "carol", cmd); !ran || err != nil {
		t.Fatalf("p.Dispatch() = %v, %v, want true, nil", ran, err)
	}
	if ran, err := p.Dispatch(t.Context(), "carol", cmd); ran || err != nil {
		t.Fatalf("second p.Dispatch() = %v, %v, want false, nil", ran, err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("action calls = %d, want 1", n)
	}
	if got := audience.Load(); got != "carol" {
		t.Errorf("action audience = %v, want %q", got, "carol")
	}

	if _, err := p.Dispatch(t.Context(), "carol", "/velocity nope"); !errors.Is(err, callback.ErrInvalidCommand) {
		t.Errorf("p.Dispatch(malformed) error = %v, want %v", err, callback.ErrInvalidCommand)
	}
}

func TestProvider_Create_InvalidArguments(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	p := callback.NewProvider(reg, callback.CommandCodec{})

	if _, err := p.Create(t.Context(), nil, time.Minute, 1); !errors.Is(err, callback.ErrInvalidArgument) {
		t.Errorf("p.Create(nil) error = %v, want %v", err, callback.ErrInvalidArgument)
	}
}
