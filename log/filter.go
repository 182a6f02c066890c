package log

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

// DefaultFilter is the expression a [Filter] falls back to when it has no
// valid directives: only errors pass.
const DefaultFilter = "error"

// ErrInvalidFilter indicates a filter directive or pattern that could not be
// parsed.
var ErrInvalidFilter = errors.New("invalid filter")

// patternSeparator splits directives from the message pattern. Package paths
// never contain an empty element, so it cannot occur inside a directive.
const patternSeparator = "//"

type directive struct {
	path  string
	level slog.Level
}

// Filter decides which records pass based on the package that logged them,
// their level, and optionally their message.
//
// Expressions are comma-separated directives, optionally followed by "//" and
// a regular expression matched against the message:
//
//	info                                  everything at info and above
//	warn,go.example.com/app/db=trace      trace for one package tree
//	go.example.com/app                    everything from a package tree
//	go.example.com/app=off                silence a package tree
//	debug//retry                          debug and above, messages matching "retry"
//
// A record's path is the package path of the function that logged it. The
// directive with the longest path that prefixes it decides the minimum level;
// a bare level applies to every path.
type Filter struct {
	pattern    *regexp.Regexp
	directives []directive
	min        slog.Level
}

// ParseFilter parses a filter expression. Invalid directives are skipped and
// reported through the returned error, which wraps [ErrInvalidFilter]; the
// returned [*Filter] is always usable. A filter without any valid directive
// behaves like [DefaultFilter].
func ParseFilter(expr string) (*Filter, error) {
	f := &Filter{}

	var errs []error

	spec, pattern, hasPattern := strings.Cut(expr, patternSeparator)
	if hasPattern {
		re, err := regexp.Compile(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: pattern %q: %w", ErrInvalidFilter, pattern, err))
		} else {
			f.pattern = re
		}
	}

	for part := range strings.SplitSeq(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		d, err := parseDirective(part)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		// Later directives for the same path win.
		i := slices.IndexFunc(f.directives, func(e directive) bool { return e.path == d.path })
		if i >= 0 {
			f.directives[i] = d
		} else {
			f.directives = append(f.directives, d)
		}
	}

	if len(f.directives) == 0 {
		f.directives = []directive{{level: slog.LevelError}}
	}

	slices.SortStableFunc(f.directives, func(a, b directive) int {
		return cmp.Compare(len(b.path), len(a.path))
	})

	f.min = LevelOff
	for _, d := range f.directives {
		f.min = min(f.min, d.level)
	}

	return f, errors.Join(errs...)
}

func parseDirective(s string) (directive, error) {
	path, lvl, hasLevel := strings.Cut(s, "=")
	if !hasLevel {
		level, err := ParseLevel(s)
		if err == nil {
			return directive{level: level}, nil
		}

		return directive{path: s, level: LevelTrace}, nil
	}

	path = strings.TrimSpace(path)
	lvl = strings.TrimSpace(lvl)

	if path == "" || strings.Contains(lvl, "=") {
		return directive{}, fmt.Errorf("%w: directive %q", ErrInvalidFilter, s)
	}

	level, err := ParseLevel(lvl)
	if err != nil {
		return directive{}, fmt.Errorf("%w: directive %q: %w", ErrInvalidFilter, s, err)
	}

	return directive{path: path, level: level}, nil
}

// Enabled reports whether a record from the package at path with the given
// level passes the directives. The message pattern is not consulted.
func (f *Filter) Enabled(path string, level slog.Level) bool {
	for _, d := range f.directives {
		if strings.HasPrefix(path, d.path) {
			return level >= d.level
		}
	}

	return false
}

// Allows reports whether a record passes the directives and the message
// pattern.
func (f *Filter) Allows(path string, level slog.Level, msg string) bool {
	if !f.Enabled(path, level) {
		return false
	}

	return f.pattern == nil || f.pattern.MatchString(msg)
}

// FilterHandler is a [slog.Handler] that forwards records passing a [Filter]
// to another handler.
//
// Create instances with [NewFilterHandler].
type FilterHandler struct {
	inner  slog.Handler
	filter *Filter
}

// NewFilterHandler wraps h with a filter parsed from expr. Invalid directives
// in expr are ignored; use [ParseFilter] to surface them.
func NewFilterHandler(h slog.Handler, expr string) *FilterHandler {
	f, _ := ParseFilter(expr)

	return &FilterHandler{inner: h, filter: f}
}

// Enabled reports whether any directive could let a record at level through.
// The package path is only known in [FilterHandler.Handle].
func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.filter.min && h.inner.Enabled(ctx, level)
}

// Handle forwards r to the wrapped handler if it passes the filter.
func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.filter.Allows(recordPath(r.PC), r.Level, r.Message) {
		return nil
	}

	return h.inner.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FilterHandler{inner: h.inner.WithAttrs(attrs), filter: h.filter}
}

// WithGroup implements [slog.Handler].
func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{inner: h.inner.WithGroup(name), filter: h.filter}
}

// recordPath returns the package path of the function at pc, or "" if pc is
// unknown.
func recordPath(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()

	return packagePath(frame.Function)
}

// packagePath trims the symbol from a qualified function name, e.g.
// "go.example.com/app/db.(*Conn).Query" becomes "go.example.com/app/db".
func packagePath(fn string) string {
	slash := strings.LastIndexByte(fn, '/')

	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn
	}

	return fn[:slash+1+dot]
}
