package treasury

import (
	"errors"
	"strings"
	"time"
)

// Errors for configuration validation
var (
	ErrTreasuryMissingBaseURL = errors.New("treasury: missing base URL")
	ErrTreasuryInvalidBaseURL = errors.New("treasury: base URL must start with http:// or https://")
	ErrTreasuryMissingAPIKey  = errors.New("treasury: missing API key")
)

// Config contains configuration for the external wallet/treasury service
// that executes crypto transfers on the marketplace's behalf
type Config struct {
	// BaseURL is the root of the treasury API, e.g. https://treasury.internal:8443
	BaseURL string
	// APIKey authenticates this marketplace against the treasury
	APIKey string
	// Timeout bounds each HTTP request; zero means the 30s default
	Timeout time.Duration
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrTreasuryMissingBaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return ErrTreasuryInvalidBaseURL
	}
	if c.APIKey == "" {
		return ErrTreasuryMissingAPIKey
	}
	return nil
}
