package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlsplit/internal/plan"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

const envPrefix = "SQLSPLIT_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	planFileUsed   string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names to config keys. Flags not listed here (--config,
// --dry-run, --watch, ...) are command options, not configuration.
var flagKeys = map[string]string{
	"out-dir":      "output_dir",
	"encoding":     "encoding",
	"plan":         "plan_file",
	"clean":        "clean",
	"write-back":   "write_back",
	"verbose":      "verbose",
	"output":       "output",
	"log-format":   "log_format",
	"database":     "plan.database",
	"title-prefix": "plan.title_prefix",
	"threshold":    "plan.threshold",
	"max-span":     "plan.max_span",
}

// envPlanKeys are environment variables that land inside the plan section.
var envPlanKeys = map[string]bool{
	"database":     true,
	"title_prefix": true,
	"threshold":    true,
	"max_span":     true,
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sqlsplit.yaml > sqlsplit.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	planFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > plan file > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	ResetConfig()

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"output_dir":     DefaultOutputDir,
		"encoding":       DefaultEncoding,
		"output":         DefaultOutput,
		"log_format":     DefaultLogFormat,
		"verbose":        false,
		"plan.threshold": segment.DefaultThreshold,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, with relative paths anchored at its directory
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if err := anchorPaths(fk, filepath.Dir(configFileUsed)); err != nil {
			return nil, err
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	// 3+4. Environment and flags
	if err := loadOverrides(flags); err != nil {
		return nil, err
	}

	// 5. Plan file replaces the inline plan; env and flags are applied again
	// so they keep the last word.
	if pf := k.String("plan_file"); pf != "" {
		if _, err := plan.Load(pf); err != nil {
			return nil, err
		}
		pk := koanf.New(".")
		if err := pk.Load(file.Provider(pf), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading plan file %s: %w", pf, err)
		}
		k.Delete("plan.segments")
		k.Delete("plan.rewrites")
		if err := k.MergeAt(pk, "plan"); err != nil {
			return nil, fmt.Errorf("failed to merge plan file: %w", err)
		}
		if err := loadOverrides(flags); err != nil {
			return nil, err
		}
		planFileUsed = pf
	}

	// 6. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       plan.DecodeHook(),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			TagName:          "koanf",
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Source = expandEnvVars(cfg.Source)
	cfg.OutputDir = expandEnvVars(cfg.OutputDir)
	cfg.PlanFile = expandEnvVars(cfg.PlanFile)

	currentConfig = &cfg
	return &cfg, nil
}

// loadOverrides applies SQLSPLIT_* variables and explicitly set flags.
func loadOverrides(flags *pflag.FlagSet) error {
	// SQLSPLIT_OUTPUT_DIR -> output_dir, SQLSPLIT_DATABASE -> plan.database
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if envPlanKeys[key] {
			return "plan." + key
		}
		return key
	}), nil); err != nil {
		return fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags == nil {
		return nil
	}
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	return nil
}

// envVarPattern matches ${VAR} references.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// anchorPaths expands ${VAR} in the path values of a config file and resolves
// relative ones against dir.
func anchorPaths(fk *koanf.Koanf, dir string) error {
	for _, key := range pathKeys {
		v := expandEnvVars(fk.String(key))
		if v == "" {
			continue
		}
		if !filepath.IsAbs(v) {
			v = filepath.Join(dir, v)
		}
		if err := fk.Set(key, v); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", key, err)
		}
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetPlanFileUsed returns the path of the separate plan file, if any.
func GetPlanFileUsed() string {
	return planFileUsed
}

// GetCurrentConfig returns the most recently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// NewLogger builds the CLI logger. Verbose enables debug records.
func NewLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
