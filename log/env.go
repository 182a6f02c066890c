package log

import (
	"fmt"

	"go.jacobcolvin.com/envlog/env"
)

// Environment variables read by [FromEnv] and [Config.OverlayEnv].
const (
	// FormatEnvKey selects the [Format].
	FormatEnvKey = "LOG_FORMAT"
	// DisableFilterEnvKey disables the filter stage when set to a true
	// boolean ([strconv.ParseBool] syntax).
	DisableFilterEnvKey = "DISABLE_ENV_LOGGER"
	// FilterEnvKey holds the filter expression.
	FilterEnvKey = "RUST_LOG"
	// FilterAliasEnvKey is consulted when [FilterEnvKey] is unset.
	FilterAliasEnvKey = "LOG_FILTER"
)

// DefaultFilterExpression is the [Config.DefaultFilter] set by [FromEnv] and
// [FromFile].
const DefaultFilterExpression = "debug"

// ConfigLoadError reports which [Config] field could not be loaded. Err is an
// [*env.NotUnicodeError], an [*env.ParseError], or a file decoding error.
type ConfigLoadError struct {
	Err   error
	Field string
	Key   string
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("invalid log %s (%s): %v", e.Field, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// FromEnv builds a [Config] from the environment. Unset variables keep their
// defaults: terminal format, filtering enabled, no filter expression, and a
// DefaultFilter of [DefaultFilterExpression]. The first invalid variable
// aborts loading with a [*ConfigLoadError].
func FromEnv() (*Config, error) {
	c := newDefaultConfig()

	err := c.OverlayEnv()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// OverlayEnv sets the fields whose environment variables are present,
// leaving the others untouched. On error c is not modified.
func (c *Config) OverlayEnv() error {
	format, hasFormat, err := env.Parse(FormatEnvKey, ParseFormat)
	if err != nil {
		return &ConfigLoadError{Field: "format", Key: FormatEnvKey, Err: err}
	}

	disable, hasDisable, err := env.Bool(DisableFilterEnvKey)
	if err != nil {
		return &ConfigLoadError{Field: "disable filter flag", Key: DisableFilterEnvKey, Err: err}
	}

	filterKey := FilterEnvKey

	filter, hasFilter, err := env.String(filterKey)
	if err == nil && !hasFilter {
		filterKey = FilterAliasEnvKey
		filter, hasFilter, err = env.String(filterKey)
	}

	if err != nil {
		return &ConfigLoadError{Field: "filter", Key: filterKey, Err: err}
	}

	if hasFormat {
		c.Format = format
	}

	if hasDisable {
		c.DisableFilter = disable
	}

	if hasFilter {
		c.Filter = &filter
	}

	return nil
}

func newDefaultConfig() *Config {
	c := NewConfig()
	def := DefaultFilterExpression
	c.DefaultFilter = &def

	return c
}
