// Package config provides configuration management for the leapmix CLI.
//
// Values are layered, lowest to highest precedence: built-in defaults,
// leapmix.yaml, LEAPMIX_* environment variables, then explicitly set flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Catalog is a YAML file of fields and data models merged over the
	// built-in catalog. Empty uses the built-in catalog only.
	Catalog string `koanf:"catalog"`
	// Recipes is the directory scanned for *.star pipeline recipes.
	Recipes string `koanf:"recipes"`
	// Database is the DuckDB file used by preview. Empty is in-memory.
	Database    string  `koanf:"database"`
	Rows        int     `koanf:"rows"`
	Seed        int64   `koanf:"seed"`
	Granularity string  `koanf:"granularity"`
	NullRate    float64 `koanf:"null_rate"`
	Verbose     bool    `koanf:"verbose"`
	Output      string  `koanf:"output"`

	// SeedSet reports whether a seed was configured anywhere, since 0 is a
	// valid seed.
	SeedSet bool `koanf:"-"`
	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultRecipesDir = "recipes"
	DefaultRows       = 20
	DefaultNullRate   = 0.03
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix         = "LEAPMIX_"
)

// configFileNames are searched in order.
var configFileNames = []string{"leapmix.yaml", "leapmix.yml"}
