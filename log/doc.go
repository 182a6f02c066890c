// Package log builds [log/slog] handler pipelines from configuration.
//
// A pipeline has up to three stages, innermost first:
//
//   - an encoder for the output [Format] ([FormatTerminal] or [FormatJSON]),
//     created by [NewHandler];
//   - an optional [FilterHandler] driven by a filter expression (see
//     [Filter]), skipped entirely when [Config.DisableFilter] is set;
//   - an [AsyncHandler] that delivers records from a single worker goroutine.
//
// Every stage is a [slog.Handler], so the result has the same type no matter
// which stages were used.
//
// Configuration comes from the environment ([FromEnv]), a YAML file
// ([FromFile]), or CLI flags via [github.com/spf13/pflag] with shell
// completion support via [github.com/spf13/cobra]:
//
//	cfg, err := log.FromEnv()
//	if err != nil {
//	    // No logger yet; report and exit.
//	}
//
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	// After parsing:
//	err = cfg.ApplyFlags(rootCmd.PersistentFlags())
//
//	handler := cfg.BuildReady(os.Stderr)
//	defer handler.Close()
//
//	slog.SetDefault(log.NewLogger(handler, "app", "demo"))
//
// [LoggerFromEnv] does all of the above except flags in one call.
//
// The environment variables are [FormatEnvKey], [DisableFilterEnvKey] and
// [FilterEnvKey]:
//
//	LOG_FORMAT=json RUST_LOG=info,example.com/app/db=trace ./app
package log
