// Package googleai adapts the Gemini API to the embedding and
// completion interfaces the pipeline consumes.
package googleai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/sibylhq/sibyl/internal/conversation"
	"github.com/sibylhq/sibyl/internal/log"
)

// Client is a Gemini-backed embedder and completer.
// Safe for concurrent use.
type Client struct {
	genai      *genai.Client
	chatModel  string
	embedModel string
	embedDim   int32
	logger     log.Logger
}

// Config holds the model selection for a Client.
type Config struct {
	APIKey        string
	ChatModel     string
	EmbedderModel string
	EmbedderDim   int
}

// New creates a Gemini client against the public Gemini API backend.
func New(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize genai client: %w", err)
	}

	return &Client{
		genai:      client,
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedderModel,
		embedDim:   int32(cfg.EmbedderDim),
		logger:     logger,
	}, nil
}

// Embed returns the embedding vector for text at the configured
// dimensionality. Deterministic per model for identical input.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	outputDim := c.embedDim
	result, err := c.genai.Models.EmbedContent(ctx, c.embedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	return result.Embeddings[0].Values, nil
}

// Complete generates an answer for the conversation turns under the
// given system instruction, capped at maxTokens output tokens. The
// call is synchronous and not retried.
func (c *Client) Complete(ctx context.Context, system string, turns []conversation.Turn, maxTokens int) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   int32(maxTokens),
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.chatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %q", c.chatModel)
	}

	c.logger.Debug("completion generated",
		"model", c.chatModel,
		"turns", len(turns),
		"answer_length", len(text))
	return text, nil
}
