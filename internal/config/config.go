package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration for the operations hub server.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	Records   RecordsConfig   `toml:"records"`
	Stats     StatsConfig     `toml:"stats"`
	Assistant AssistantConfig `toml:"assistant"`
	Archive   ArchiveConfig   `toml:"archive"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host                   string   `toml:"host"`
	Port                   int      `toml:"port"`
	MaxConnections         int      `toml:"max_connections"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
	StaticDir              string   `toml:"static_dir"`
	CORSAllowedOrigins     []string `toml:"cors_allowed_origins"`
}

// LoggingConfig controls log level and encoding.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StorageConfig locates the on-disk data files.
type StorageConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"`
}

// AuthConfig holds credential store and session settings.
type AuthConfig struct {
	UsersFile         string `toml:"users_file"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
	AdminUsername     string `toml:"admin_username"`
	AdminPassword     string `toml:"admin_password"`
	BcryptCost        int    `toml:"bcrypt_cost"`
}

// RecordsConfig tunes bulk import behavior.
type RecordsConfig struct {
	ImportMaxRows int      `toml:"import_max_rows"`
	ImportOnError string   `toml:"import_on_error"` // abort or skip
	ImportRoles   []string `toml:"import_roles"`    // roles allowed to bulk-import
}

// StatsConfig tunes the dashboard summary cache.
type StatsConfig struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// AssistantConfig configures the optional LLM-backed assistant.
type AssistantConfig struct {
	Enabled               bool    `toml:"enabled"`
	APIKey                string  `toml:"api_key"`
	BaseURL               string  `toml:"base_url"`
	Model                 string  `toml:"model"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	Temperature           float64 `toml:"temperature"`
	MaxTokens             int     `toml:"max_tokens"`
	HistoryLimit          int     `toml:"history_limit"`
}

// ArchiveConfig selects and configures the snapshot archive backend.
type ArchiveConfig struct {
	Driver    string `toml:"driver"` // fs, s3 or memory
	Dir       string `toml:"dir"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the configuration used when a field is absent from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8080,
			MaxConnections:         256,
			ShutdownTimeoutSeconds: 10,
			StaticDir:              "web",
			CORSAllowedOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			DataDir:      "data",
			DatabasePath: "data/opshub.db",
		},
		Auth: AuthConfig{
			UsersFile:         "data/users.json",
			SessionTTLMinutes: 480,
			AdminUsername:     "admin",
			AdminPassword:     "admin123",
			BcryptCost:        10,
		},
		Records: RecordsConfig{
			ImportMaxRows: 10000,
			ImportOnError: "abort",
			ImportRoles:   []string{"administrator"},
		},
		Stats: StatsConfig{
			CacheTTLSeconds: 15,
		},
		Assistant: AssistantConfig{
			Enabled:               false,
			Model:                 "llama-3.3-70b-versatile",
			RequestTimeoutSeconds: 30,
			Temperature:           0.7,
			MaxTokens:             1024,
			HistoryLimit:          50,
		},
		Archive: ArchiveConfig{
			Driver: "fs",
			Dir:    "data/archives",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the TOML file at path on top of the defaults and validates the
// result. Secrets left blank in the file fall back to environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secret fields from the environment when the file leaves them
// blank, so credentials can stay out of checked-in configs.
func (c *Config) applyEnv() {
	if c.Assistant.APIKey == "" {
		c.Assistant.APIKey = os.Getenv("OPSHUB_ASSISTANT_API_KEY")
	}
	if v := os.Getenv("OPSHUB_ADMIN_PASSWORD"); v != "" {
		c.Auth.AdminPassword = v
	}
}

// Validate checks cross-field constraints before the server starts.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("server max_connections must be positive, got %d", c.Server.MaxConnections)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir must not be empty")
	}
	if c.Auth.SessionTTLMinutes < 1 {
		return fmt.Errorf("auth session_ttl_minutes must be positive, got %d", c.Auth.SessionTTLMinutes)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth bcrypt_cost %d out of range", c.Auth.BcryptCost)
	}
	switch c.Records.ImportOnError {
	case "abort", "skip":
	default:
		return fmt.Errorf("records import_on_error must be abort or skip, got %q", c.Records.ImportOnError)
	}
	if c.Records.ImportMaxRows < 1 {
		return fmt.Errorf("records import_max_rows must be positive, got %d", c.Records.ImportMaxRows)
	}
	if len(c.Records.ImportRoles) == 0 {
		return fmt.Errorf("records import_roles must name at least one role")
	}
	switch c.Archive.Driver {
	case "fs", "memory":
	case "s3":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive bucket must be set for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown archive driver: %s", c.Archive.Driver)
	}
	if c.Assistant.Enabled && c.Assistant.APIKey == "" {
		return fmt.Errorf("assistant api_key must be set when the assistant is enabled")
	}
	if c.Assistant.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("assistant request_timeout_seconds must be positive, got %d", c.Assistant.RequestTimeoutSeconds)
	}
	return nil
}

// CollectionPath returns the flat-file path for a record collection.
func (c *Config) CollectionPath(name string) string {
	return filepath.Join(c.Storage.DataDir, name+".json")
}
