package config

import "fmt"

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration and returns the first problem found.
// Errors wrap the package sentinel errors for errors.Is checks.
func (c *Config) Validate() error {
	if c.ChatModel == "" {
		return fmt.Errorf("%w: chat_model must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderDim <= 0 || c.EmbedderDim > 4096 {
		return fmt.Errorf("%w: embedder_dimension must be in (0, 4096], got %d",
			ErrInvalidEmbedderDimension, c.EmbedderDim)
	}
	if c.MaxAnswerTokens <= 0 || c.MaxAnswerTokens > 65536 {
		return fmt.Errorf("%w: max_answer_tokens must be in (0, 65536], got %d",
			ErrInvalidMaxTokens, c.MaxAnswerTokens)
	}

	if c.TopKBrowser <= 0 || c.TopKBrowser > 100 {
		return fmt.Errorf("%w: top_k_browser must be in (0, 100], got %d",
			ErrInvalidTopK, c.TopKBrowser)
	}
	if c.TopKDatabase <= 0 || c.TopKDatabase > 100 {
		return fmt.Errorf("%w: top_k_database must be in (0, 100], got %d",
			ErrInvalidTopK, c.TopKDatabase)
	}
	// Cosine distance lives in [0, 2].
	if c.DistanceCutoff <= 0 || c.DistanceCutoff > 2 {
		return fmt.Errorf("%w: distance_cutoff must be in (0, 2], got %g",
			ErrInvalidCutoff, c.DistanceCutoff)
	}

	if c.SessionCapacity <= 0 || c.SessionCapacity > 1000 {
		return fmt.Errorf("%w: session_capacity must be in (0, 1000], got %d",
			ErrInvalidSessionCapacity, c.SessionCapacity)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be in (0, 65535], got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// RequireGeminiAPIKey returns an error when no Gemini API key is configured.
// Called by commands that actually contact the model, so that offline
// commands (migrate, help) work without credentials.
func (c *Config) RequireGeminiAPIKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// RequireSearchCredentials returns an error when the web-search snippet
// loader is not configured.
func (c *Config) RequireSearchCredentials() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("%w: set GOOGLE_SEARCH_API_KEY", ErrMissingAPIKey)
	}
	if c.Search.EngineID == "" {
		return fmt.Errorf("%w: set GOOGLE_SEARCH_ENGINE_ID", ErrMissingAPIKey)
	}
	return nil
}
