// Command envlog builds a log pipeline the way an application would and
// writes sample records through it, which makes it easy to try out formats
// and filter expressions.
//
// Configuration is layered: built-in defaults, then the optional
// --log-config YAML file, then the environment (LOG_FORMAT,
// DISABLE_ENV_LOGGER, RUST_LOG), then command-line flags.
//
// # Usage
//
//	envlog [flags]
//	envlog schema
//
// # Examples
//
//	LOG_FORMAT=json RUST_LOG=info envlog
//	envlog --log-filter 'warn,main=trace' --repeat 3
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/envlog/log"
	"go.jacobcolvin.com/envlog/version"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		// Configuration failed before a logger existed.
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := log.NewConfig()

	var (
		configPath string
		repeat     int
	)

	rootCmd := &cobra.Command{
		Use:   "envlog [flags]",
		Short: "Write sample records through a configured log pipeline",
		Long: `envlog resolves a log pipeline from defaults, an optional YAML file, the
environment and flags, in that order of precedence, and writes one sample
record per level through it to stderr.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := log.DefaultFilterExpression
			cfg.DefaultFilter = &def

			if configPath != "" {
				err := cfg.OverlayFile(configPath)
				if err != nil {
					return err
				}
			}

			err := cfg.OverlayEnv()
			if err != nil {
				return err
			}

			err = cfg.ApplyFlags(cmd.Flags())
			if err != nil {
				return err
			}

			return run(cmd.Context(), cmd.ErrOrStderr(), cfg, repeat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "log-config", "", "YAML log configuration file")
	rootCmd.Flags().IntVar(&repeat, "repeat", 1, "number of times to write the sample records")
	cfg.RegisterFlags(rootCmd.PersistentFlags())

	completionErr := cfg.RegisterCompletions(rootCmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(newSchemaCmd())

	return rootCmd
}

func run(ctx context.Context, w io.Writer, cfg *log.Config, repeat int) error {
	handler := cfg.BuildReady(w)
	defer handler.Close()

	logger := log.NewLogger(handler, version.Attr())

	expr, filtered := cfg.FilterExpression()
	logger.Info("pipeline ready",
		slog.String("format", cfg.Format.String()),
		slog.Bool("filtered", filtered),
		slog.String("filter", expr),
	)

	for i := range repeat {
		writeSamples(ctx, logger.With(slog.Int("iteration", i)))
	}

	if n := handler.Dropped(); n > 0 {
		logger.Warn("records dropped by the async queue", slog.Uint64("count", n))
	}

	return nil
}

func writeSamples(ctx context.Context, logger *slog.Logger) {
	logger.Log(ctx, log.LevelTrace, "trace sample", slog.String("detail", "very verbose"))
	logger.DebugContext(ctx, "debug sample", slog.Int("items", 3))
	logger.InfoContext(ctx, "info sample", slog.Bool("ok", true))
	logger.WarnContext(ctx, "warn sample", slog.Group("req", slog.String("method", "GET"), slog.String("path", "/")))
	logger.ErrorContext(ctx, "error sample", slog.Any("err", os.ErrNotExist))
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the --log-config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := log.FileSchema()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}

			out = append(out, '\n')

			_, err = cmd.OutOrStdout().Write(out)
			if err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}

			return nil
		},
	}
}
