package log

import (
	"errors"
	"log/slog"
	"math"
	"strings"
)

const (
	// LevelTrace is more verbose than [slog.LevelDebug].
	LevelTrace = slog.LevelDebug - 4
	// LevelOff is above every level a record can carry. A filter directive
	// set to LevelOff silences its target.
	LevelOff = slog.Level(math.MaxInt32)
)

// ErrUnknownLogLevel indicates an unrecognized log level string.
var ErrUnknownLogLevel = errors.New("unknown log level")

// ParseLevel parses a log level string and returns the corresponding
// [slog.Level]. Matching is case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "off":
		return LevelOff, nil
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	}

	return 0, ErrUnknownLogLevel
}

// GetAllLevelStrings returns every level name accepted by [ParseLevel], from
// least to most verbose.
func GetAllLevelStrings() []string {
	return []string{"off", "error", "warn", "info", "debug", "trace"}
}

// replaceLevelName renders [LevelTrace] as "TRACE" instead of "DEBUG-4".
func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}

	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}

	return a
}
