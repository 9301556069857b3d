package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate checks the settings every split needs. Plan problems are reported
// with their segment index.
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source is required\nHint: pass the dump path as an argument or set source in sqlsplit.yaml"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if err := c.Plan.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid plan: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateSource checks that the source dump exists and is a regular file.
func (c *Config) ValidateSource() error {
	info, err := os.Stat(c.Source)
	if err != nil {
		return fmt.Errorf("source dump does not exist: %s\nHint: check the path or use --config to point at another project", c.Source)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", c.Source)
	}
	return nil
}
