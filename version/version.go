// Package version exposes build metadata for the envlog command.
package version

import (
	"log/slog"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Attr returns the build metadata as a "build" group, suitable as persistent
// context on a root logger. Empty ldflags values are omitted.
func Attr() slog.Attr {
	var attrs []any

	if Version != "" {
		attrs = append(attrs, slog.String("version", Version))
	}

	if BuildDate != "" {
		attrs = append(attrs, slog.String("date", BuildDate))
	}

	attrs = append(attrs,
		slog.String("revision", Revision),
		slog.String("go", GoVersion),
	)

	return slog.Group("build", attrs...)
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
