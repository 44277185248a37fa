package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/taic/backend/internal/infrastructure/telemetry"
)

// ErrProviderUnavailable wraps Gemini API failures so callers can map
// them to a uniform domain error without inspecting provider internals
var ErrProviderUnavailable = errors.New("gemini: provider unavailable")

// ErrEmptyResponse is returned when the model produced no usable text
// (safety block, empty candidates)
var ErrEmptyResponse = errors.New("gemini: empty response")

// Turn is one prior exchange in a chat history
type Turn struct {
	// FromUser is true for the user's turns, false for the model's
	FromUser bool
	Content  string
}

// TextRequest is a free-text generation request
type TextRequest struct {
	SystemInstruction string
	History           []Turn
	Prompt            string
}

// JSONRequest is a structured generation request; the model is forced
// into JSON output mode
type JSONRequest struct {
	SystemInstruction string
	Prompt            string
}

// GeminiClient generates text and JSON through the Gemini API
type GeminiClient struct {
	client *genai.Client
	config Config
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(ctx context.Context, config Config) (*GeminiClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateText produces a free-text reply for a prompt with optional
// chat history and system instruction
func (c *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.RoleModel
		if turn.FromUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	config := c.generateConfig(req.SystemInstruction)

	result, err := c.generate(ctx, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	text := responseText(result)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateJSON produces a JSON document for a prompt. The response MIME
// type forces JSON mode, and stray markdown fences are stripped anyway
// since models occasionally wrap output despite the mode.
func (c *GeminiClient) GenerateJSON(ctx context.Context, req JSONRequest) ([]byte, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	config := c.generateConfig(req.SystemInstruction)
	config.ResponseMIMEType = "application/json"

	result, err := c.generate(ctx, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	text := StripCodeFences(responseText(result))
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(text), nil
}

// generate calls the model under an external_api profiling region so time
// blocked on Gemini is distinguishable in profiles from application work.
func (c *GeminiClient) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var (
		result *genai.GenerateContentResponse
		err    error
	)
	labels := telemetry.RegionLabels("external_api", map[string]string{"provider": "gemini"})
	telemetry.WithProfilingLabels(ctx, labels, func(callCtx context.Context) {
		result, err = c.client.Models.GenerateContent(callCtx, c.config.ModelOrDefault(), contents, config)
	})
	return result, err
}

func (c *GeminiClient) generateConfig(systemInstruction string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if c.config.Temperature != nil {
		config.Temperature = c.config.Temperature
	}
	if c.config.MaxOutputTokens > 0 {
		config.MaxOutputTokens = c.config.MaxOutputTokens
	}
	return config
}

// responseText extracts the reply text, tolerating nil candidates and
// empty parts
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			sb.WriteString(part.Text)
		}
		// Only the first non-empty candidate is used
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

// StripCodeFences removes a surrounding markdown code fence from a
// model response, with or without a language tag
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. ```json)
		first := strings.TrimSpace(text[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
