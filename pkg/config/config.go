package config

import (
	"encoding/json"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for schemalens-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords, credentials) must only come from environment
// variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Debug    bool   `yaml:"debug" env:"DEBUG" env-default:"false"` // verbosity only
	Version  string `yaml:"-"`                                     // Set at load time, not from config

	// Embedding provider configuration
	OpenAI OpenAIConfig `yaml:"openai"`

	// Vector index configuration
	Index IndexConfig `yaml:"index"`

	// Warehouse source (BigQuery)
	BigQuery BigQueryConfig `yaml:"bigquery"`

	// Relational source (PostgreSQL)
	Postgres PostgresConfig `yaml:"postgres"`
}

// OpenAIConfig holds embedding provider settings. The chat model is
// configured and reserved for future use; the core pipeline only calls the
// embedding model.
type OpenAIConfig struct {
	APIKey         string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	EmbeddingModel string `yaml:"embedding_model" env:"OPENAI_EMBEDDING_MODEL" env-default:"text-embedding-3-large"`
	ChatModel      string `yaml:"chat_model" env:"OPENAI_CHAT_MODEL" env-default:"gpt-4-0125-preview"`
}

// IndexConfig holds vector index persistence settings.
type IndexConfig struct {
	PersistPath string `yaml:"persist_path" env:"INDEX_PERSIST_PATH" env-default:"./data/index.db"`
	Collection  string `yaml:"collection" env:"INDEX_COLLECTION" env-default:"schema_metadata"`
}

// BigQueryConfig holds warehouse source settings.
type BigQueryConfig struct {
	ProjectID string `yaml:"project_id" env:"GCP_PROJECT_ID" env-default:""`
	// ServiceAccountJSON is the service account key as a JSON string.
	ServiceAccountJSON string `yaml:"-" env:"GCP_SERVICE_ACCOUNT"` // Secret - not in YAML
}

// Configured returns true if the warehouse source can be used.
func (c *BigQueryConfig) Configured() bool {
	return c.ProjectID != "" && c.ServiceAccountJSON != ""
}

// PostgresConfig holds relational source settings. The fields are
// all-or-nothing: setting some but not all of them fails at startup.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:""`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"0"`
	Database string `yaml:"database" env:"POSTGRES_DB" env-default:""`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:""`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"` // Secret - not in YAML
}

// Configured returns true if the relational source can be used.
func (c *PostgresConfig) Configured() bool {
	return c.Host != "" && c.Port != 0 && c.Database != "" && c.User != "" && c.Password != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	return loadFrom("config.yaml", version)
}

func loadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate enforces cross-field constraints that cleanenv cannot express.
func (c *Config) validate() error {
	if err := c.Postgres.validate(); err != nil {
		return err
	}
	if c.BigQuery.ServiceAccountJSON != "" && !json.Valid([]byte(c.BigQuery.ServiceAccountJSON)) {
		return fmt.Errorf("GCP_SERVICE_ACCOUNT must be a valid JSON string")
	}
	return nil
}

// validate enforces the all-or-nothing rule: partial relational settings are
// a configuration error, not a silently disabled source.
func (c *PostgresConfig) validate() error {
	set := 0
	total := 5
	if c.Host != "" {
		set++
	}
	if c.Port != 0 {
		set++
	}
	if c.Database != "" {
		set++
	}
	if c.User != "" {
		set++
	}
	if c.Password != "" {
		set++
	}
	if set != 0 && set != total {
		return fmt.Errorf("postgres settings are all-or-nothing: %d of %d fields set", set, total)
	}
	return nil
}
