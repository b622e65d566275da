// Package log provides logging utilities.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"
)

var newHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
	slogformatter.FormatByType(func(d time.Duration) slog.Value {
		return slog.StringValue(d.String())
	}),
)

// Options configure a logger built with [New].
type Options struct {
	// Dev switches to the developer-friendly multi-line output.
	Dev bool
	// Level is the minimum enabled level.
	// If nil, [slog.LevelInfo] is used.
	Level slog.Leveler
	// AddSource adds the source position to each record.
	AddSource bool
}

func (o *Options) dev() bool { return o != nil && o.Dev }

func (o *Options) level() slog.Leveler {
	if o == nil || o.Level == nil {
		return slog.LevelInfo
	}
	return o.Level
}

func (o *Options) addSource() bool { return o != nil && o.AddSource }

// New creates a new logger writing to w.
// If w is nil, [os.Stdout] is used.
func New(w io.Writer, opts *Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	if opts.dev() {
		return slog.New(newHandler(
			devslog.NewHandler(w, &devslog.Options{
				HandlerOptions: &slog.HandlerOptions{
					AddSource: opts.addSource(),
					Level:     opts.level(),
				},
				SortKeys:   true,
				TimeFormat: time.RFC3339Nano,
			}),
		))
	}

	return slog.New(newHandler(
		console.NewHandler(w, &console.HandlerOptions{
			AddSource:  opts.addSource(),
			Level:      opts.level(),
			TimeFormat: time.RFC3339Nano,
		}),
	))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})

var def atomic.Pointer[slog.Logger]

func init() {
	def.Store(New(os.Stdout, nil))
}

// Default returns the package default logger.
func Default() *slog.Logger { return def.Load() }

// SetDefault replaces the package default logger.
// Passing nil resets it to [Noop].
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = Noop
	}
	def.Store(l)
}
