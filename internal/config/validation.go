package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Sentinel errors for validation failures, checkable with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the selected provider's API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedder indicates embedder model or dimension is invalid.
	ErrInvalidEmbedder = errors.New("invalid embedder configuration")

	// ErrInvalidRetrieval indicates a retrieval tuning value is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidPostgres indicates a PostgreSQL setting is invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidServer indicates an HTTP server setting is invalid.
	ErrInvalidServer = errors.New("invalid server configuration")
)

// Validate checks configuration values, failing fast on the first problem.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q is not one of gemini, googleai, openai", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedder)
	}
	if c.EmbeddingDimension < 1 {
		return fmt.Errorf("%w: embedding_dimension must be positive, got %d", ErrInvalidEmbedder, c.EmbeddingDimension)
	}

	if err := c.Retrieval.validate(); err != nil {
		return err
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgres)
	}
	if c.PostgresPassword == "recall_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}

	// Deprecated allow/prefer modes are excluded; they are vulnerable to
	// downgrade attacks.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: ssl mode %q is not one of %v", ErrInvalidPostgres, c.PostgresSSLMode, validSSLModes)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidServer)
	}
	if c.RequestsPerS < 0 {
		return fmt.Errorf("%w: requests_per_second cannot be negative, got %f", ErrInvalidServer, c.RequestsPerS)
	}

	return nil
}

func (r *RetrievalConfig) validate() error {
	if r.InitialLimit < 0 {
		return fmt.Errorf("%w: initial_limit cannot be negative, got %d", ErrInvalidRetrieval, r.InitialLimit)
	}
	if r.SimilarityThreshold < 0 || r.SimilarityThreshold >= 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0, 1), got %f", ErrInvalidRetrieval, r.SimilarityThreshold)
	}
	if r.StatementBoost < 0 {
		return fmt.Errorf("%w: statement_boost cannot be negative, got %f", ErrInvalidRetrieval, r.StatementBoost)
	}
	if r.TopN < 0 {
		return fmt.Errorf("%w: top_n cannot be negative, got %d", ErrInvalidRetrieval, r.TopN)
	}
	if r.MinChunkLength < 0 {
		return fmt.Errorf("%w: min_chunk_length cannot be negative, got %d", ErrInvalidRetrieval, r.MinChunkLength)
	}
	if r.MaxQuestionWords < 0 {
		return fmt.Errorf("%w: max_question_words cannot be negative, got %d", ErrInvalidRetrieval, r.MaxQuestionWords)
	}
	return nil
}
