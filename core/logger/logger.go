// Package logger provides the bot's structured slog setup: a single handler
// that writes ordered key/value or JSON lines, request metadata carried in
// context.Context, and component-scoped helpers.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"festbot/core/buildinfo"
	coreconfig "festbot/core/config"
)

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	debugSampler = newRatioSampler(defaultSampleNum, defaultSampleDen)
	traceAll     bool

	sinkMu  sync.Mutex
	sink    *asyncWriter
	closers []io.Closer
	closed  bool

	// L is the base logger. Until InitLogger runs it is slog.Default().
	L *slog.Logger

	// DB logs database events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs migration events.
	MIG *slog.Logger
	// TWire logs route and command wiring.
	TWire *slog.Logger
)

func init() {
	setBase(slog.Default())
}

func setBase(base *slog.Logger) {
	L = base
	DB = base.With("component", "db")
	TG = base.With("component", "tg")
	MIG = base.With("component", "db.migrate")
	TWire = base.With("component", "tg.wire")
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() { err = install(resolveOptions(cfg)) })
	return err
}

func install(opts options) error {
	levelVar.Set(opts.level)
	debugSampler.Set(opts.sampleNum, opts.sampleDen)
	traceAll = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

	outputs, files, err := buildOutputs(opts)
	if err != nil {
		return err
	}
	w := newAsyncWriter(outputs, 64*1024)

	sinkMu.Lock()
	sink, closers = w, files
	sinkMu.Unlock()

	base := slog.New(newStructuredHandler(handlerConfig{
		level:    &levelVar,
		writer:   w,
		format:   opts.format,
		keyOrder: opts.keyOrder,
	}))
	slog.SetDefault(base)
	setBase(base)

	build := buildinfo.Current()
	base.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("go_version", build.GoVersion),
		slog.String("build_version", build.Version),
		slog.String("build_commit", build.Commit),
		slog.String("build_time", build.Date),
		slog.String("cfg_profile", opts.profile),
		slog.String("log_format", string(opts.format)),
		slog.String("log_level", opts.level.String()),
	)
	return nil
}

// Shutdown flushes pending lines and closes log files. It is safe to call
// more than once.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Flush(), sink.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one line with the given event name. A nil logg resolves
// to the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(orBackground(ctx), level, "", attrs...)
}

// Component returns L tagged with the given component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" || L == nil {
		return L
	}
	return L.With("component", name)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 or LOG_TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
