// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest priority first:
//  1. Environment variables (DATABASE_URL, RECALL_* overrides)
//  2. Config file (~/.recall/config.yaml or ./config.yaml)
//  3. Defaults
//
// Sensitive values (the PostgreSQL password) are masked in MarshalJSON and
// String, so a Config can be logged safely. Validation lives in
// validation.go and uses sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultEmbedderModel truncates its output to the schema's dimension
	// via OutputDimensionality.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimension matches the VECTOR(1536) columns in the
	// chunk schema. Changing it requires a schema migration.
	DefaultEmbeddingDimension = 1536
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; when adding one,
// update that method.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding configuration
	EmbedderModel      string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`

	// Retrieval tuning
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration
	ListenAddr   string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins  []string `mapstructure:"cors_origins" json:"cors_origins"`
	RequestsPerS float64  `mapstructure:"requests_per_second" json:"requests_per_second"`

	// Observability configuration
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// RetrievalConfig tunes the retrieval pipeline. Zero values fall back to the
// retrieval package defaults at wiring time; Validate only rejects values
// that are explicitly out of range.
type RetrievalConfig struct {
	InitialLimit        int     `mapstructure:"initial_limit" json:"initial_limit"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
	StatementBoost      float64 `mapstructure:"statement_boost" json:"statement_boost"`
	TopN                int     `mapstructure:"top_n" json:"top_n"`
	MinChunkLength      int     `mapstructure:"min_chunk_length" json:"min_chunk_length"`
	MaxQuestionWords    int     `mapstructure:"max_question_words" json:"max_question_words"`
}

// Load loads configuration with priority: env > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".recall")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no configuration file found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dimension", DefaultEmbeddingDimension)

	viper.SetDefault("retrieval.initial_limit", 15)
	viper.SetDefault("retrieval.similarity_threshold", 0.5)
	viper.SetDefault("retrieval.statement_boost", 0.25)
	viper.SetDefault("retrieval.top_n", 5)
	viper.SetDefault("retrieval.min_chunk_length", 5)
	viper.SetDefault("retrieval.max_question_words", 7)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "recall")
	viper.SetDefault("postgres_password", "recall_dev_password")
	viper.SetDefault("postgres_db_name", "recall")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("requests_per_second", 5.0)

	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "recall")
}

// bindEnvVariables binds runtime overrides explicitly. GEMINI_API_KEY and
// OPENAI_API_KEY are read directly by the Genkit plugins, not via Viper;
// Validate checks their presence for the selected provider.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: binding %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "RECALL_PROVIDER")
	mustBind("model_name", "RECALL_MODEL_NAME")
	mustBind("listen_addr", "RECALL_LISTEN_ADDR")
	mustBind("cors_origins", "RECALL_CORS_ORIGINS")
	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("environment", "RECALL_ENVIRONMENT")
}

// maskedValue avoids substring leaks: plain "****" would leak passwords that
// themselves contain asterisks.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 chars or fewer
// are fully masked; longer ones keep the first and last two characters for
// debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit, e.g.
// "googleai/gemini-2.5-flash" or "openai/gpt-4o". A ModelName already
// containing "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// String implements Stringer so accidental printing never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
