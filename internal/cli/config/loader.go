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

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigFile searches upward from startDir for a config file.
func findConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if p := configExistsIn(dir); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load reads configuration from defaults, the config file, environment
// variables and flags. cfgFile may be empty to search from the working
// directory upward. Only flags marked Changed override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"recipes":   DefaultRecipesDir,
		"rows":      DefaultRows,
		"null_rate": DefaultNullRate,
		"verbose":   false,
		"output":    DefaultOutput,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	used := cfgFile
	if used == "" {
		used = findConfigFile(cwd)
	}
	projectRoot := cwd
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
		if abs, err := filepath.Abs(used); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment: LEAPMIX_NULL_RATE -> null_rate
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, paths given on the command line are relative to the CWD
	flagPaths := make(map[string]bool)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			flagPaths[key] = true
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.SeedSet = k.Exists("seed")
	cfg.ProjectRoot = projectRoot

	for key, p := range map[string]*string{
		"catalog":  &cfg.Catalog,
		"recipes":  &cfg.Recipes,
		"database": &cfg.Database,
	} {
		*p = expandEnvVars(*p)
		if flagPaths[key] {
			if *p != "" && *p != ":memory:" {
				*p, _ = filepath.Abs(*p)
			}
			continue
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if c.Rows < 0 {
		return fmt.Errorf("rows must not be negative, got %d", c.Rows)
	}
	if c.NullRate < 0 || c.NullRate > 1 {
		return fmt.Errorf("null_rate must be between 0 and 1, got %g", c.NullRate)
	}
	if c.Granularity != "" {
		if _, ok := core.ParseGranularity(c.Granularity); !ok {
			return fmt.Errorf("invalid granularity %q, must be one of: Daily, Weekly, Monthly", c.Granularity)
		}
	}
	if _, err := output.ParseMode(c.Output); err != nil {
		return err
	}
	return nil
}

// Default returns the configuration used when none was loaded.
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Recipes:     filepath.Join(cwd, DefaultRecipesDir),
		Rows:        DefaultRows,
		NullRate:    DefaultNullRate,
		Output:      DefaultOutput,
		ProjectRoot: cwd,
	}
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, falling back to
// Default.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger: text on w, debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
