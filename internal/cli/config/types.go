// Package config loads sqlsplit CLI configuration.
//
// Values are layered with koanf: built-in defaults, then sqlsplit.yaml, then
// SQLSPLIT_* environment variables, then explicitly set flags. A separate plan
// file named by plan_file replaces the inline plan section but never beats an
// environment variable or flag.
package config

import (
	"github.com/leapstack-labs/sqlsplit/internal/plan"
)

// Config holds all CLI configuration options.
type Config struct {
	Source       string `koanf:"source"`
	OutputDir    string `koanf:"output_dir"`
	Encoding     string `koanf:"encoding"`
	PlanFile     string `koanf:"plan_file"`
	Clean        bool   `koanf:"clean"`
	WriteBack    bool   `koanf:"write_back"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFormat    string `koanf:"log_format"`

	Plan plan.Plan `koanf:"plan"`
}

// Default configuration values.
const (
	DefaultOutputDir = "split"
	DefaultEncoding  = "utf-8"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
)

// configNames are looked up in the working directory when no --config is given.
var configNames = []string{"sqlsplit.yaml", "sqlsplit.yml"}

// pathKeys are resolved against the config file's directory when they come
// from that file.
var pathKeys = []string{"source", "output_dir", "plan_file"}
