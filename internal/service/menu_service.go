package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
	"github.com/tablebite/ordering/internal/observability"
)

const (
	defaultLLMTimeout = 30 * time.Second
	menuTemperature   = 0.7
	menuMaxTokens     = 1500
	menuSystemPrompt  = "You are a helpful assistant for a Japanese sushi restaurant. Generate a menu with exactly 8 items in valid JSON format."
)

const menuGenerationPrompt = `Generate a restaurant menu with 8 Japanese/sushi items. Return ONLY valid JSON array with this exact structure:
[
  {
    "id": 1,
    "name": "Item Name",
    "description": "Brief description",
    "price": 9.99,
    "image": "https://images.unsplash.com/photo-relevant-food?w=400&h=300&fit=crop",
    "ingredients": "main ingredients, comma separated",
    "category": "Rolls",
    "dietary": ["vegetarian"],
    "spiceLevel": 0
  }
]

Use real Unsplash image URLs for food photos. Make prices realistic ($3-$20). Include variety: rolls, nigiri, appetizers, and entrees.
"dietary" may be an empty array. "spiceLevel" is an integer from 0 (mild) to 3 (hot).`

// Fallback reasons (metric label values).
const (
	fallbackNoClient    = "no_client"
	fallbackTimeout     = "timeout"
	fallbackProvider    = "provider"
	fallbackNoJSON      = "no_json"
	fallbackInvalidJSON = "invalid_json"
	fallbackNoValidItem = "no_valid_item"
)

var errLLMTimeout = errors.New("llm request timeout")

// MenuService builds the menu from the static catalog or one LLM completion.
// The live menu falls back to the static catalog on any failure.
type MenuService struct {
	completion         CompletionClient
	timeout            time.Duration
	metrics            observability.LLMMetrics
	performanceLogging bool
}

// MenuServiceParams configures MenuService. Completion may be nil (static menu only).
type MenuServiceParams struct {
	Completion         CompletionClient
	Timeout            time.Duration
	Metrics            observability.LLMMetrics
	PerformanceLogging bool
}

// NewMenuService creates a MenuService.
func NewMenuService(p MenuServiceParams) *MenuService {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}

	return &MenuService{
		completion:         p.Completion,
		timeout:            timeout,
		metrics:            p.Metrics,
		performanceLogging: p.PerformanceLogging,
	}
}

// GetMenu returns the menu for source ("" means live).
func (s *MenuService) GetMenu(ctx context.Context, source string) ([]models.MenuItem, error) {
	switch source {
	case "", models.MenuSourceLive:
		return s.GetLiveMenu(ctx), nil
	case models.MenuSourceStatic:
		return s.GetStaticMenu(), nil
	default:
		return nil, huberrors.NewValidationError("type", fmt.Sprintf("must be %q or %q", models.MenuSourceLive, models.MenuSourceStatic))
	}
}

// GetStaticMenu returns a copy of the fixed catalog.
func (s *MenuService) GetStaticMenu() []models.MenuItem {
	return cloneMenu(staticMenu)
}

// GetLiveMenu asks the completion provider for a menu. It never fails: a missing
// client, timeout, provider error or unusable JSON yields the static catalog.
func (s *MenuService) GetLiveMenu(ctx context.Context) []models.MenuItem {
	if s.completion == nil {
		slog.InfoContext(ctx, "Using static menu (no LLM credential configured)")
		s.recordFallback(ctx, fallbackNoClient)

		return s.GetStaticMenu()
	}

	start := time.Now()
	content, err := completeWithTimeout(ctx, s.completion, s.timeout, models.CompletionRequest{
		System:      menuSystemPrompt,
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: menuGenerationPrompt}},
		Temperature: menuTemperature,
		MaxTokens:   menuMaxTokens,
	})
	elapsed := time.Since(start)

	s.recordCall(ctx, err, elapsed)

	if s.performanceLogging {
		slog.InfoContext(ctx, "LLM menu response time", "duration_ms", elapsed.Milliseconds())
	}

	if err != nil {
		reason := fallbackProvider
		if errors.Is(err, errLLMTimeout) {
			reason = fallbackTimeout
		}

		slog.ErrorContext(ctx, "Error fetching menu from LLM, falling back to static menu", "error", err, "reason", reason)
		s.recordFallback(ctx, reason)

		return s.GetStaticMenu()
	}

	items, reason, err := parseGeneratedMenu(content)
	if err != nil {
		slog.ErrorContext(ctx, "Could not use LLM menu, falling back to static menu", "error", err, "reason", reason)
		s.recordFallback(ctx, reason)

		return s.GetStaticMenu()
	}

	slog.InfoContext(ctx, "Generated menu from LLM", "items", len(items))

	return items
}

func parseGeneratedMenu(content string) ([]models.MenuItem, string, error) {
	raw, ok := extractJSONArray(content)
	if !ok {
		return nil, fallbackNoJSON, ErrNoJSONArray
	}

	generated, err := parseMenuJSON(raw)
	if err != nil {
		return nil, fallbackInvalidJSON, err
	}

	items := toMenuItems(generated)
	if len(items) == 0 {
		return nil, fallbackNoValidItem, ErrNoValidMenuItems
	}

	return items, "", nil
}

func (s *MenuService) recordCall(ctx context.Context, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordCall(ctx, observability.OperationMenuGeneration, callOutcome(err), elapsed)
}

func (s *MenuService) recordFallback(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.RecordMenuFallback(ctx, reason)
	}
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, errLLMTimeout):
		return observability.OutcomeTimeout
	default:
		return observability.OutcomeError
	}
}

// completeWithTimeout races the completion against timeout. The call's context is
// cancelled on timeout, but the result does not wait for the client to notice.
func completeWithTimeout(
	ctx context.Context, client CompletionClient, timeout time.Duration, req models.CompletionRequest,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		text, err := client.Complete(ctx, req)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", errLLMTimeout, timeout, r.err)
		}

		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", errLLMTimeout, timeout)
		}

		return "", fmt.Errorf("llm request: %w", ctx.Err())
	}
}
