package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/attendobot/core/buildinfo"
	coreconfig "github.com/m3rciful/attendobot/core/config"
)

const defaultDebugSample = "1/50"

var (
	initOnce     sync.Once
	shutdownOnce sync.Once

	out      *fanoutWriter
	closers  []io.Closer
	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the process logger. It discards output until InitLogger runs.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// options is the logging setup resolved from config.
type options struct {
	format      logFormat
	keyOrder    []string
	level       slog.Level
	sampleNum   int
	sampleDen   int
	profile     string
	file        string
	traceForced bool
}

func resolveOptions(cfg *coreconfig.Config) options {
	var lc coreconfig.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	o := options{
		profile:     strings.ToLower(cmpOr(strings.TrimSpace(lc.Profile), "prod")),
		traceForced: isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE")),
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		o.format = formatKV
	case "json":
		o.format = formatJSON
	default:
		o.format = formatJSON
		if o.profile == "debug" || o.profile == "dev" {
			o.format = formatKV
		}
	}

	o.keyOrder = slices.Clone(defaultKeyOrder)
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var custom []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				custom = append(custom, k)
			}
		}
		if len(custom) > 0 {
			o.keyOrder = custom
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		o.level = slog.LevelDebug
	case "warn", "warning":
		o.level = slog.LevelWarn
	case "error":
		o.level = slog.LevelError
	default:
		o.level = slog.LevelInfo
	}

	o.sampleNum, o.sampleDen = parseRatioSpec(cmpOr(strings.TrimSpace(lc.DebugSample), defaultDebugSample))
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		o.file = filepath.Join(dir, name)
	}
	return o
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		o := resolveOptions(cfg)
		levelVar.Set(o.level)
		debugSampler.Set(o.sampleNum, o.sampleDen)
		traceOverride = o.traceForced

		sinks := []io.Writer{os.Stdout}
		if o.file != "" {
			f, err := openLogFile(o.file)
			if err != nil {
				initErr = err
				return
			}
			sinks = append(sinks, f)
			closers = append(closers, f)
		}
		out = newFanoutWriter(sinks)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   out,
			format:   o.format,
			keyOrder: o.keyOrder,
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("cfg_profile", o.profile),
			slog.String("log_level", o.level.String()),
		)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes log output and closes file sinks.
func Shutdown() error {
	var errs []error
	shutdownOnce.Do(func() {
		if out != nil {
			errs = append(errs, out.Flush(), out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event through logg, or the context logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the process logger scoped to a component.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs with the component attribute set.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
