package logger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Value written instead of credentials
const redacted = "[REDACTED]"

// Attribute keys holding credentials, compared lowercased
var secretKeys = map[string]struct{}{
	"password":      {},
	"access_token":  {},
	"authorization": {},
	"secret_key":    {},
}

// Frames between caller and record creation: runtime.Callers, log and the level method
const callerSkip = 3

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) log(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(callerSkip, pcs[:])

	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = l.logger.Handler().Handle(ctx, record)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *slogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{logger: l.logger.WithGroup(name)}
}

// Only the four named levels are accepted, in any case
func parseLevel(level string) (slog.Level, error) {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		err := lvl.UnmarshalText([]byte(level))
		return lvl, err
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q, expected one of %q, %q, %q or %q",
			level, LevelDebug, LevelInfo, LevelWarn, LevelError)
	}
}

// replace keeps base name of source file, writes time in UTC and hides credentials
func replace(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
			return a
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			return a
		}
	}

	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}

	return a
}
