package log

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for log configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Format        string
	Filter        string
	DisableFilter string
	QueueSize     string
	Overflow      string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:  f,
		Format: FormatTerminal,
	}
}

// Config describes a handler pipeline: the output [Format], the optional
// [FilterHandler] stage, and the [AsyncHandler] parameters.
//
// Create instances with [NewConfig], [FromEnv] or [FromFile]. Register CLI
// flags with [Config.RegisterFlags] and apply them with [Config.ApplyFlags].
// Use [Config.BuildReady] to create the handler for a root logger.
type Config struct {
	// Filter is the filter expression. Nil means unset; an empty string is
	// set but falls through to DefaultFilter.
	Filter *string
	// DefaultFilter is used when Filter is nil or empty. When both are
	// unusable the filter's own [DefaultFilter] applies.
	DefaultFilter *string

	flagValues flagValues
	Format     Format
	Overflow   Overflow
	Flags      Flags
	QueueSize  int

	// DisableFilter removes the filter stage. Filter and DefaultFilter are
	// then ignored.
	DisableFilter bool
}

type flagValues struct {
	format        string
	filter        string
	overflow      string
	queueSize     int
	disableFilter bool
}

// NewConfig returns a new [Config] with default flag names, the terminal
// format and no filter expressions.
func NewConfig() *Config {
	f := Flags{
		Format:        "log-format",
		Filter:        "log-filter",
		DisableFilter: "disable-log-filter",
		QueueSize:     "log-queue-size",
		Overflow:      "log-overflow",
	}

	return f.NewConfig()
}

// RegisterFlags adds logging flags to the given [*pflag.FlagSet]. Flag values
// only reach the [Config] through [Config.ApplyFlags].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.flagValues.format, c.Flags.Format, FormatTerminal.String(),
		fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))
	flags.StringVar(&c.flagValues.filter, c.Flags.Filter, "",
		"log filter expression, e.g. info,example.com/pkg=debug")
	flags.BoolVar(&c.flagValues.disableFilter, c.Flags.DisableFilter, false,
		"disable log filtering entirely")
	flags.IntVar(&c.flagValues.queueSize, c.Flags.QueueSize, defaultQueueSize,
		"async log queue size")
	flags.StringVar(&c.flagValues.overflow, c.Flags.Overflow, string(OverflowDropAndReport),
		fmt.Sprintf("async log queue overflow strategy, one of: %s", GetAllOverflowStrings()))
}

// RegisterCompletions registers shell completions for log flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Format,
		cobra.FixedCompletions(GetAllFormatStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Format, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Overflow,
		cobra.FixedCompletions(GetAllOverflowStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Overflow, err)
	}

	return nil
}

// ApplyFlags copies the flags that were set on the command line into c,
// leaving fields for unset flags untouched. Call it after parsing and after
// any file or environment configuration so that flags take precedence.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	if flags.Changed(c.Flags.Format) {
		format, err := ParseFormat(c.flagValues.format)
		if err != nil {
			return fmt.Errorf("%w: --%s: %w", ErrInvalidArgument, c.Flags.Format, err)
		}

		c.Format = format
	}

	if flags.Changed(c.Flags.Filter) {
		filter := c.flagValues.filter
		c.Filter = &filter
	}

	if flags.Changed(c.Flags.DisableFilter) {
		c.DisableFilter = c.flagValues.disableFilter
	}

	if flags.Changed(c.Flags.QueueSize) {
		c.QueueSize = c.flagValues.queueSize
	}

	if flags.Changed(c.Flags.Overflow) {
		overflow, err := ParseOverflow(c.flagValues.overflow)
		if err != nil {
			return fmt.Errorf("%w: --%s: %w", ErrInvalidArgument, c.Flags.Overflow, err)
		}

		c.Overflow = overflow
	}

	return nil
}

// FilterExpression returns the expression the filter stage uses: Filter if it
// is set and non-empty, otherwise DefaultFilter if set, otherwise
// [DefaultFilter]. The boolean result is false when DisableFilter is set.
func (c *Config) FilterExpression() (string, bool) {
	if c.DisableFilter {
		return "", false
	}

	if c.Filter != nil && *c.Filter != "" {
		return *c.Filter, true
	}

	if c.DefaultFilter != nil {
		return *c.DefaultFilter, true
	}

	return DefaultFilter, true
}

// ApplyFilter is the filter stage. It returns h itself when filtering is
// disabled, and h wrapped in a [FilterHandler] otherwise.
func ApplyFilter(h slog.Handler, c *Config) slog.Handler {
	expr, ok := c.FilterExpression()
	if !ok {
		return h
	}

	return NewFilterHandler(h, expr)
}

// Build creates the encoder and filter stages writing to w, without async
// buffering. Use it to compose your own buffering; most callers want
// [Config.BuildReady].
func (c *Config) Build(w io.Writer) slog.Handler {
	return ApplyFilter(NewHandler(w, c.Format), c)
}

// BuildReady creates the full pipeline writing to w: encoder, filter, and an
// outermost [AsyncHandler]. Close the returned handler before exiting.
func (c *Config) BuildReady(w io.Writer) *AsyncHandler {
	var opts []AsyncOption
	if c.QueueSize > 0 {
		opts = append(opts, WithQueueSize(c.QueueSize))
	}

	if c.Overflow != "" {
		opts = append(opts, WithOverflow(c.Overflow))
	}

	return NewAsyncHandler(c.Build(w), opts...)
}
