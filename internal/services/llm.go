package services

import (
	"context"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// LLMService defines the interface for interacting with the generative
// backend.
type LLMService interface {
	// InitModel initializes the model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Generate runs a content generation call with the given toolset and
	// returns text plus at most one structured action request.
	Generate(ctx context.Context, messages []chat.ChatMessage, tools []chat.Tool) (*chat.GenerateResult, error)

	// Meta runs a background call (assessment, summarization, placeholders)
	// on the cheaper meta model, returning plain text.
	Meta(ctx context.Context, messages []chat.ChatMessage) (string, error)
}
