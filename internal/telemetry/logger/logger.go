package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface used across authrelay. It is a thin veneer
// over log/slog that remembers a context for the *Context variants.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying *slog.Logger for packages that take one.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	// File appends to the named file instead of Output when set.
	File string
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns JSON at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

// level is shared by every logger built with New so SetLevel applies
// process-wide, including after a config reload.
var level = new(slog.LevelVar)

var levelNames = map[string]slog.Level{
	"":        slog.LevelInfo,
	"info":    slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel converts a level name to slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", name)
}

// SetLevel changes the level of every logger created by New.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// GetLevel returns the current level in the form accepted by SetLevel.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// New builds a logger from cfg. The returned io.Closer releases the log
// file when cfg.File is set and is a no-op otherwise.
func New(cfg Config) (Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closer, err := openSink(cfg)
	if err != nil {
		return nil, nil, err
	}
	h, err := newHandler(w, cfg)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	level.Set(lvl)
	return &slogLogger{logger: slog.New(h), ctx: context.Background()}, closer, nil
}

func openSink(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("logger: open %s: %w", cfg.File, err)
		}
		return f, f, nil
	}
	if cfg.Output != nil {
		return cfg.Output, io.NopCloser(nil), nil
	}
	return os.Stderr, io.NopCloser(nil), nil
}

func newHandler(w io.Writer, cfg Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "console":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
}

type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.DebugContext(l.ctx, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.InfoContext(l.ctx, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.WarnContext(l.ctx, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.ErrorContext(l.ctx, msg, args...) }
func (l *slogLogger) Slog() *slog.Logger            { return l.logger }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

var std atomic.Pointer[slogLogger]

func init() {
	l, _, _ := New(DefaultConfig())
	std.Store(l.(*slogLogger))
}

// SetDefault replaces the process-wide logger and installs it as slog's
// default. Loggers not created by New are ignored.
func SetDefault(l Logger) {
	sl, ok := l.(*slogLogger)
	if !ok {
		return
	}
	std.Store(sl)
	slog.SetDefault(sl.logger)
}

// Default returns the process-wide logger.
func Default() Logger { return std.Load() }

// Info logs through the process-wide logger.
func Info(msg string, args ...any) { std.Load().Info(msg, args...) }

// Error logs through the process-wide logger.
func Error(msg string, args ...any) { std.Load().Error(msg, args...) }
