package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"charm.land/lipgloss/v2"
	charmlog "charm.land/log/v2"
)

// Format represents the log output format.
type Format string

const (
	// FormatTerminal outputs compact, human-readable single-line records.
	FormatTerminal Format = "terminal"
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

// InvalidFormatError is returned by [ParseFormat] and carries the rejected
// input. It matches [ErrUnknownLogFormat] with [errors.Is].
type InvalidFormatError struct {
	Value string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownLogFormat, e.Value)
}

// Is reports whether target is [ErrUnknownLogFormat].
func (e *InvalidFormatError) Is(target error) bool {
	return target == ErrUnknownLogFormat
}

// ParseFormat parses a log format string and returns the corresponding
// [Format]. Matching is case-insensitive and "term" is accepted as an alias
// for [FormatTerminal].
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "terminal", "term":
		return FormatTerminal, nil
	case "json":
		return FormatJSON, nil
	}

	return "", &InvalidFormatError{Value: format}
}

// String returns the canonical lowercase spelling of f.
func (f Format) String() string {
	return string(f)
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseFormat].
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}

// GetAllFormatStrings returns the canonical spelling of every [Format].
func GetAllFormatStrings() []string {
	return []string{
		FormatTerminal.String(),
		FormatJSON.String(),
	}
}

// NewHandler creates the encoder stage: a [slog.Handler] that renders records
// to w in the given format. The encoder accepts every level down to
// [LevelTrace]; verbosity is decided by [NewFilterHandler].
//
// Unknown formats fall back to [FormatTerminal].
//
// The terminal format renders a group opened with [slog.Logger.WithGroup] as
// a message prefix ("g: msg x=1") rather than qualifying keys ("g.x=1"); use
// [FormatJSON] when group structure matters.
func NewHandler(w io.Writer, format Format) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       LevelTrace,
			ReplaceAttr: replaceLevelName,
		})
	}

	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(LevelTrace),
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000",
		Formatter:       charmlog.TextFormatter,
	})
	l.SetStyles(terminalStyles())

	return l
}

// terminalStyles extends the default styles with a label for [LevelTrace],
// which charm does not know about.
func terminalStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	styles.Levels[charmlog.Level(LevelTrace)] = lipgloss.NewStyle().
		SetString("TRACE").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("245"))

	return styles
}

// NewHandlerFromStrings creates a [slog.Handler] from a format string.
func NewHandlerFromStrings(w io.Writer, format string) (slog.Handler, error) {
	logFmt, err := ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return NewHandler(w, logFmt), nil
}
