package ai

import "errors"

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Errors for configuration validation
var (
	ErrGeminiMissingAPIKey = errors.New("gemini: missing API key")
)

// Config contains configuration for the Gemini API client
type Config struct {
	// APIKey authenticates against the Gemini API
	APIKey string
	// Model is the generation model name, e.g. gemini-2.0-flash
	Model string
	// Temperature controls sampling; nil uses the model default
	Temperature *float32
	// MaxOutputTokens bounds replies; zero uses the model default
	MaxOutputTokens int32
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrGeminiMissingAPIKey
	}
	return nil
}

// ModelOrDefault returns the configured model, falling back to DefaultModel
func (c *Config) ModelOrDefault() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}
