// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options configures Setup.
type Options struct {
	// Path additionally writes every record to this file when set.
	Path  string
	Level slog.Level

	// FluentHost enables forwarding to a Fluent Bit / fluentd agent.
	FluentHost string
	FluentPort int
	FluentTag  string

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// ParseLevel accepts debug, info, warn and error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Setup builds the logger, installs it as slog's default and returns a
// cleanup function that flushes and closes its outputs.
func Setup(opts Options) (*slog.Logger, func(), error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	handlers := []slog.Handler{&levelRouter{
		level:  opts.Level,
		stdout: consoleHandler(stdout, opts.Level),
		stderr: consoleHandler(stderr, opts.Level),
	}}

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closers = append(closers, f.Close)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	}

	if opts.FluentHost != "" {
		tag := opts.FluentTag
		if tag == "" {
			tag = "oglasnik"
		}
		client, err := fluent.New(fluent.Config{
			FluentHost: opts.FluentHost,
			FluentPort: opts.FluentPort,
			TagPrefix:  tag,
			Async:      true,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("creating fluent client: %w", err)
		}
		closers = append(closers, client.Close)
		handlers = append(handlers, NewFluentHandler(client, "app", opts.Level))
	}

	var handler slog.Handler = handlers[0]
	if len(handlers) > 1 {
		handler = fanout(handlers)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// consoleHandler colors output for terminals and stays plain otherwise.
func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	level  slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// fanout sends each record to every handler that wants it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
