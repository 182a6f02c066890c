package log

import (
	"io"
	"log/slog"
)

// NewLogger creates a root [*slog.Logger] for h with persistent context
// args, given in [slog.Logger.With] form.
func NewLogger(h slog.Handler, args ...any) *slog.Logger {
	return slog.New(h).With(args...)
}

// HandlerFromEnv loads a [Config] with [FromEnv] and builds the full
// pipeline writing to w.
func HandlerFromEnv(w io.Writer) (*AsyncHandler, error) {
	c, err := FromEnv()
	if err != nil {
		return nil, err
	}

	return c.BuildReady(w), nil
}

// LoggerFromEnv is [HandlerFromEnv] followed by [NewLogger]. The returned
// [io.Closer] flushes the pipeline and must be closed before exiting.
func LoggerFromEnv(w io.Writer, args ...any) (*slog.Logger, io.Closer, error) {
	h, err := HandlerFromEnv(w)
	if err != nil {
		return nil, nil, err
	}

	return NewLogger(h, args...), h, nil
}
