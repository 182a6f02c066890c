package log

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
)

// ErrReadConfig indicates a configuration file could not be read or decoded.
var ErrReadConfig = errors.New("read log config")

// FileConfig is the YAML document read by [FromFile]. Absent keys keep the
// defaults of [FromEnv].
type FileConfig struct {
	Filter        *string `json:"filter,omitempty" yaml:"filter,omitempty" jsonschema:"filter expression such as info or debug"`
	DefaultFilter *string `json:"defaultFilter,omitempty" yaml:"defaultFilter,omitempty" jsonschema:"filter expression used when filter is unset or empty"`
	DisableFilter *bool   `json:"disableFilter,omitempty" yaml:"disableFilter,omitempty" jsonschema:"disable log filtering entirely"`
	QueueSize     *int    `json:"queueSize,omitempty" yaml:"queueSize,omitempty" jsonschema:"async log queue size"`
	Format        *string `json:"format,omitempty" yaml:"format,omitempty" jsonschema:"log output format"`
	Overflow      *string `json:"overflow,omitempty" yaml:"overflow,omitempty" jsonschema:"async log queue overflow strategy"`
}

// FromFile builds a [Config] from the YAML file at path, starting from the
// same defaults as [FromEnv]. Unknown keys are rejected.
func FromFile(path string) (*Config, error) {
	c := newDefaultConfig()

	err := c.OverlayFile(path)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// OverlayFile reads the YAML file at path and applies it with
// [Config.OverlayYAML].
func (c *Config) OverlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	err = c.OverlayYAML(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
	}

	return nil
}

// OverlayYAML decodes a [FileConfig] document and sets the fields it
// contains. On error c is not modified.
func (c *Config) OverlayYAML(data []byte) error {
	var fc FileConfig

	err := yaml.UnmarshalWithOptions(data, &fc, yaml.DisallowUnknownField())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	next := *c

	if fc.Format != nil {
		format, err := ParseFormat(*fc.Format)
		if err != nil {
			return &ConfigLoadError{Field: "format", Key: "format", Err: err}
		}

		next.Format = format
	}

	if fc.Overflow != nil {
		overflow, err := ParseOverflow(*fc.Overflow)
		if err != nil {
			return &ConfigLoadError{Field: "overflow", Key: "overflow", Err: err}
		}

		next.Overflow = overflow
	}

	if fc.Filter != nil {
		next.Filter = fc.Filter
	}

	if fc.DefaultFilter != nil {
		next.DefaultFilter = fc.DefaultFilter
	}

	if fc.DisableFilter != nil {
		next.DisableFilter = *fc.DisableFilter
	}

	if fc.QueueSize != nil {
		next.QueueSize = *fc.QueueSize
	}

	*c = next

	return nil
}

// FileSchema returns the JSON Schema describing [FileConfig] documents.
func FileSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[FileConfig](nil)
	if err != nil {
		return nil, fmt.Errorf("generating log config schema: %w", err)
	}

	schema.Title = "envlog configuration"

	if p, ok := schema.Properties["format"]; ok {
		p.Enum = []any{"terminal", "term", "json"}
	}

	if p, ok := schema.Properties["overflow"]; ok {
		for _, s := range GetAllOverflowStrings() {
			p.Enum = append(p.Enum, s)
		}
	}

	if p, ok := schema.Properties["queueSize"]; ok {
		p.Minimum = jsonschema.Ptr(1.0)
	}

	return schema, nil
}
