package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying slog.Logger for packages that take one
	// directly.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is debug, info, warn or error. Unknown names mean info.
	Level string
	// Format is json or text; console is an alias for text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds file:line to every entry.
	AddSource bool
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// level is shared by every logger built by New so SetLevel applies
// process-wide, including to loggers already handed out.
var level = new(slog.LevelVar)

// New creates a logger. Content and credential attributes are redacted
// before they reach the handler.
func New(cfg Config) (Logger, error) {
	level.Set(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if f := strings.ToLower(cfg.Format); f == "text" || f == "console" {
		h = slog.NewTextHandler(out, opts)
	}
	return wrap(slog.New(h), context.Background()), nil
}

type slogLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func wrap(l *slog.Logger, ctx context.Context) *slogLogger {
	return &slogLogger{l: l, ctx: ctx}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.DebugContext(s.ctx, msg, args...) }
func (s *slogLogger) Info(msg string, args ...any) { s.l.InfoContext(s.ctx, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any) { s.l.WarnContext(s.ctx, msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.ErrorContext(s.ctx, msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return wrap(s.l.With(args...), s.ctx)
}

func (s *slogLogger) WithContext(ctx context.Context) Logger {
	return wrap(s.l, ctx)
}

func (s *slogLogger) Slog() *slog.Logger { return s.l }

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// GetLevel returns the current level name.
func GetLevel() string {
	return levelName(level.Level())
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(name string) slog.Level {
	if l, ok := levelNames[strings.ToLower(name)]; ok {
		return l
	}
	return slog.LevelInfo
}

func levelName(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "debug"
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	}
	return "info"
}

// ValidLevel reports whether name is a supported level.
func ValidLevel(name string) bool {
	_, ok := levelNames[strings.ToLower(name)]
	return ok
}

var std atomic.Pointer[slogLogger]

func init() {
	l, _ := New(DefaultConfig())
	std.Store(l.(*slogLogger))
}

// SetDefault replaces the process logger and installs it as the slog
// default so library code using slog.Default follows it.
func SetDefault(l Logger) {
	if s, ok := l.(*slogLogger); ok {
		std.Store(s)
		slog.SetDefault(s.l)
	}
}

// Default returns the process logger.
func Default() Logger {
	return std.Load()
}

// Debug logs through the process logger.
func Debug(msg string, args ...any) { std.Load().Debug(msg, args...) }

// Info logs through the process logger.
func Info(msg string, args ...any) { std.Load().Info(msg, args...) }

// Warn logs through the process logger.
func Warn(msg string, args ...any) { std.Load().Warn(msg, args...) }

// Error logs through the process logger.
func Error(msg string, args ...any) { std.Load().Error(msg, args...) }
