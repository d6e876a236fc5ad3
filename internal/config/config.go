// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SIBYL_* plus DATABASE_URL / GEMINI_API_KEY)
//  2. Config file (~/.sibyl/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive fields (API keys, passwords) are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate.
var (
	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTokens indicates the answer token cap is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max answer tokens")

	// ErrInvalidTopK indicates a top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidCutoff indicates the cosine distance cutoff is out of range.
	ErrInvalidCutoff = errors.New("invalid distance cutoff")

	// ErrInvalidSessionCapacity indicates the session turn capacity is out of range.
	ErrInvalidSessionCapacity = errors.New("invalid session capacity")

	// ErrInvalidEmbedderDimension indicates the embedder output dimensionality
	// does not match the vector column width.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is unknown.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedding model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the pgvector schema uses vector(768).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChatModel is the default Gemini completion model.
	DefaultChatModel = "gemini-2.5-flash"

	// DefaultEmbedderDimension matches the vector column width in db/migrations.
	DefaultEmbedderDimension = 768

	// DefaultCollection is the durable document collection queried in
	// database mode when the caller supplies none.
	DefaultCollection = "rag_documents"

	// DefaultDistanceCutoff is the cosine distance threshold for the durable
	// retrieval path. Passages at or above the cutoff are dropped. Tunable
	// constant, not derived.
	DefaultDistanceCutoff = 0.4

	// DefaultSessionCapacity is the sliding-window turn capacity per session.
	DefaultSessionCapacity = 10

	// DefaultSessionTTL bounds registry growth across many sessions.
	DefaultSessionTTL = time.Hour
)

// SearchConfig configures the web-search snippet loader
// (Google Programmable Search).
type SearchConfig struct {
	APIKey      string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	EngineID    string `mapstructure:"engine_id" json:"engine_id"`
	ResultCount int    `mapstructure:"result_count" json:"result_count"`
}

// PersonaConfig holds the optional persona deployment variant: static
// persona text plus profile fields interpolated into the system instruction.
// Treated as opaque configuration, not logic.
type PersonaConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	PatientName  string `mapstructure:"patient_name" json:"patient_name"`
	Diagnosis    string `mapstructure:"diagnosis" json:"diagnosis"`
	Prescription string `mapstructure:"prescription" json:"prescription"`
	Appointment  string `mapstructure:"appointment" json:"appointment"`
	Notes        string `mapstructure:"notes" json:"notes"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when
// adding new secrets.
type Config struct {
	// Model configuration
	GeminiAPIKey    string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ChatModel       string `mapstructure:"chat_model" json:"chat_model"`
	EmbedderModel   string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDim     int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	MaxAnswerTokens int    `mapstructure:"max_answer_tokens" json:"max_answer_tokens"`

	// Retrieval configuration
	TopKBrowser    int     `mapstructure:"top_k_browser" json:"top_k_browser"`
	TopKDatabase   int     `mapstructure:"top_k_database" json:"top_k_database"`
	DistanceCutoff float64 `mapstructure:"distance_cutoff" json:"distance_cutoff"`
	Collection     string  `mapstructure:"collection" json:"collection"`

	// Conversation memory configuration
	SessionCapacity int           `mapstructure:"session_capacity" json:"session_capacity"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" json:"session_ttl"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Web search (snippet mode)
	Search SearchConfig `mapstructure:"search" json:"search"`

	// Persona deployment variant
	Persona PersonaConfig `mapstructure:"persona" json:"persona"`

	// Tracing
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sibyl")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chat_model", DefaultChatModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	v.SetDefault("max_answer_tokens", 400)

	v.SetDefault("top_k_browser", 3)
	v.SetDefault("top_k_database", 5)
	v.SetDefault("distance_cutoff", DefaultDistanceCutoff)
	v.SetDefault("collection", DefaultCollection)

	v.SetDefault("session_capacity", DefaultSessionCapacity)
	v.SetDefault("session_ttl", DefaultSessionTTL)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sibyl")
	v.SetDefault("postgres_password", "sibyl_dev_password")
	v.SetDefault("postgres_db_name", "sibyl")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("search.result_count", 5)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "sibyl")
}

// bindEnvVariables binds environment variables.
// Secrets are bound explicitly; everything else uses the SIBYL_ prefix.
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("SIBYL")
	v.AutomaticEnv()

	// Secrets keep their conventional names.
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("postgres_password", "SIBYL_POSTGRES_PASSWORD", "POSTGRES_PASSWORD")
	_ = v.BindEnv("search.api_key", "SIBYL_SEARCH_API_KEY", "GOOGLE_SEARCH_API_KEY")
	_ = v.BindEnv("search.engine_id", "SIBYL_SEARCH_ENGINE_ID", "GOOGLE_SEARCH_ENGINE_ID")
}

// MarshalJSON masks sensitive fields when the configuration is serialized
// (e.g. for debug logging).
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.GeminiAPIKey != "" {
		masked.GeminiAPIKey = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.Search.APIKey != "" {
		masked.Search.APIKey = "***"
	}
	return json.Marshal(masked)
}
