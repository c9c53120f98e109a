package service

import (
	"context"

	"github.com/tablebite/ordering/internal/models"
)

// CompletionClient runs one chat completion.
// Implemented by provider-specific clients (OpenAI, Google Gemini).
type CompletionClient interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}
