package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	CIQ         CIQConfig     `toml:"ciq"`
	Deck        DeckConfig    `toml:"deck"`
	Session     SessionConfig `toml:"session"`
	MCP         MCPConfig     `toml:"mcp"`
	Logging     LoggingConfig `toml:"logging"`
}

// IsDevMode reports whether the portal runs with development defaults
// (verbose template data, relaxed caching).
func (c *Config) IsDevMode() bool {
	switch c.Environment {
	case "dev", "development":
		return true
	}
	return false
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// CIQConfig holds the market-data API credentials and endpoint.
// Username/Password/APIKey are normally sourced from the .env file
// (written by the Config page) or CIQ_* environment variables rather
// than the TOML file.
type CIQConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	EnvFile  string `toml:"env_file"`
}

// Configured reports whether enough credentials are present to call the API.
func (c *CIQConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// DeckConfig contains presentation generation settings.
type DeckConfig struct {
	TemplatePath   string   `toml:"template_path"`
	OutputDir      string   `toml:"output_dir"`
	DefaultYears   int      `toml:"default_years"`
	DefaultMetrics []string `toml:"default_metrics"`
}

// SessionConfig contains session store settings.
type SessionConfig struct {
	TTLHours   int `toml:"ttl_hours"`
	MaxEntries int `toml:"max_entries"`
}

// MCPConfig controls the /mcp endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Credentials saved by the Config page land in the .env file; load it
	// into the process environment so the overrides below pick them up.
	// A missing file is not an error.
	if config.CIQ.EnvFile != "" {
		_ = godotenv.Load(config.CIQ.EnvFile)
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies DECKSMITH_* and CIQ_* environment variable
// overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("DECKSMITH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DECKSMITH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if env := os.Getenv("DECKSMITH_ENVIRONMENT"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("DECKSMITH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if path := os.Getenv("DECKSMITH_TEMPLATE_PATH"); path != "" {
		config.Deck.TemplatePath = path
	}
	if dir := os.Getenv("DECKSMITH_OUTPUT_DIR"); dir != "" {
		config.Deck.OutputDir = dir
	}

	if user := os.Getenv("CIQ_USERNAME"); user != "" {
		config.CIQ.Username = user
	}
	if pass := os.Getenv("CIQ_PASSWORD"); pass != "" {
		config.CIQ.Password = pass
	}
	if key := os.Getenv("CIQ_API_KEY"); key != "" {
		config.CIQ.APIKey = key
	}
	if url := os.Getenv("CIQ_BASE_URL"); url != "" {
		config.CIQ.BaseURL = url
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks mandatory fields and value ranges, returning one
// human-readable issue per problem. Credentials are deliberately not
// mandatory: the portal starts without them and the Config page fills
// them in.
func (c *Config) Validate() []string {
	var issues []string

	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Server.Host, validation.Required),
	); err != nil {
		issues = append(issues, fmt.Sprintf("server: %v", err))
	}

	if err := validation.ValidateStruct(&c.CIQ,
		validation.Field(&c.CIQ.BaseURL, validation.Required, is.URL),
	); err != nil {
		issues = append(issues, fmt.Sprintf("ciq: %v", err))
	}

	if err := validation.ValidateStruct(&c.Deck,
		validation.Field(&c.Deck.DefaultYears, validation.Required, validation.Min(1), validation.Max(10)),
	); err != nil {
		issues = append(issues, fmt.Sprintf("deck: %v", err))
	}

	if err := validation.ValidateStruct(&c.Session,
		validation.Field(&c.Session.TTLHours, validation.Required, validation.Min(1)),
		validation.Field(&c.Session.MaxEntries, validation.Required, validation.Min(1)),
	); err != nil {
		issues = append(issues, fmt.Sprintf("session: %v", err))
	}

	return issues
}

// ValidateCredentials validates the credential form fields before they
// are saved. BaseURL is optional in the form (empty keeps the current
// value).
func ValidateCredentials(username, password, baseURL string) error {
	err := validation.Errors{
		"username": validation.Validate(username, validation.Required, validation.Length(3, 128)),
		"password": validation.Validate(password, validation.Required, validation.Length(4, 128)),
		"base_url": validation.Validate(baseURL, validation.When(baseURL != "", is.URL)),
	}.Filter()
	if err != nil {
		return err
	}
	return nil
}
