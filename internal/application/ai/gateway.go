package ai

import (
	"context"
	"errors"

	"github.com/taic/backend/internal/domain/ai"
	"github.com/taic/backend/internal/domain/shared"
	gemini "github.com/taic/backend/internal/infrastructure/ai"
)

// GeminiGateway generates text and JSON through the AI provider.
// Implemented by the Gemini client.
type GeminiGateway interface {
	GenerateText(ctx context.Context, req gemini.TextRequest) (string, error)
	GenerateJSON(ctx context.Context, req gemini.JSONRequest) ([]byte, error)
}

// mapProviderError converts provider failures into a uniform domain
// error so handlers can answer 503 without leaking provider details
func mapProviderError(err error) error {
	if errors.Is(err, gemini.ErrProviderUnavailable) || errors.Is(err, gemini.ErrEmptyResponse) {
		return shared.NewDomainError("AI_PROVIDER_UNAVAILABLE", "The AI assistant is temporarily unavailable")
	}
	return err
}

// historyTurns converts stored messages into provider chat turns
func historyTurns(messages []ai.Message) []gemini.Turn {
	if len(messages) == 0 {
		return nil
	}
	turns := make([]gemini.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, gemini.Turn{
			FromUser: m.IsFromUser(),
			Content:  m.Content,
		})
	}
	return turns
}
