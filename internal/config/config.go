// Package config holds all m365audit configuration. Settings are resolved in
// three layers: built-in defaults, an optional YAML file, then environment
// variables (a .env file in the working directory is loaded first, matching
// how tenant credentials are usually distributed for this tool).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all m365audit configuration.
type Config struct {
	// Microsoft Graph connection
	Graph GraphConfig `yaml:"graph"`

	// SQLite storage
	Storage StorageConfig `yaml:"storage"`

	// Collection behavior
	Collection CollectionConfig `yaml:"collection"`

	// Dashboard generation
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GraphConfig configures the Microsoft Graph API client.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
	AuthorityURL string `yaml:"authority_url"`
	Timeout      string `yaml:"timeout"`
}

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CollectionConfig configures collection batching and retries.
type CollectionConfig struct {
	// Page size for the paginated /users endpoint (Graph caps at 999).
	PageSize int `yaml:"page_size"`

	// Users per checkpoint batch during license-detail collection.
	BatchSize int `yaml:"batch_size"`

	// Retry attempts for rate-limited requests.
	MaxRetries int `yaml:"max_retries"`
}

// DashboardConfig configures dashboard output.
type DashboardConfig struct {
	OutputPath   string `yaml:"output_path"`
	InactiveDays int    `yaml:"inactive_days"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:      "https://graph.microsoft.com/v1.0",
			AuthorityURL: "https://login.microsoftonline.com",
			Timeout:      "60s",
		},
		Storage: StorageConfig{
			DatabasePath: "data/m365_costs.db",
		},
		Collection: CollectionConfig{
			PageSize:   999,
			BatchSize:  100,
			MaxRetries: 5,
		},
		Dashboard: DashboardConfig{
			OutputPath:   "m365_dashboard.html",
			InactiveDays: 90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// .env in the working directory, if present. Environment wins over it.
	_ = godotenv.Load()

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. The variable
// names match the original .env contract for this tool.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_BASE_URL"); v != "" {
		c.Graph.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("DASHBOARD_OUTPUT"); v != "" {
		c.Dashboard.OutputPath = v
	}
	if v := os.Getenv("INACTIVE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Dashboard.InactiveDays = n
		}
	}
	if v := os.Getenv("M365AUDIT_DEBUG"); v != "" {
		c.Logging.Debug = v == "1" || v == "true"
	}
}

// GraphTimeout returns the Graph client timeout as a duration.
func (c *Config) GraphTimeout() time.Duration {
	d, err := time.ParseDuration(c.Graph.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// StateDir returns the directory holding the database, used for logs.
func (c *Config) StateDir() string {
	return filepath.Dir(c.Storage.DatabasePath)
}

// ValidateCredentials checks that Graph credentials are present. Only the
// collect command needs them; reporting commands work offline.
func (c *Config) ValidateCredentials() error {
	if c.Graph.TenantID == "" || c.Graph.ClientID == "" || c.Graph.ClientSecret == "" {
		return fmt.Errorf("missing Graph credentials: set TENANT_ID, CLIENT_ID and CLIENT_SECRET (a .env file in the working directory is read automatically)")
	}
	return nil
}
