package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tablebite/ordering/internal/config"
	"github.com/tablebite/ordering/internal/models"
	"github.com/tablebite/ordering/internal/observability"
)

// Fixed assistant replies.
const (
	AnswerUnavailable      = "Sorry, the AI assistant is not available at the moment."
	AnswerStoreUnavailable = "Sorry, the menu database is not available. Please try again later."
	AnswerNoMatch          = "I couldn't find any menu items matching your question. Could you try rephrasing or ask about something else?"
	AnswerError            = "Sorry, I encountered an error while processing your question. Please try again."
)

// MenuSearchTool is reported in toolsUsed when a chat answer used retrieval.
const MenuSearchTool = "menu_search"

const (
	ragTopK         = 5
	ragTemperature  = 0.7
	ragMaxTokens    = 500
	chatHistoryTurn = 10
)

// MenuRetriever is the read side of the vector store.
type MenuRetriever interface {
	IsInitialized() bool
	SemanticSearch(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
	Len() int
}

// RAGService answers menu questions from retrieved items only. It moves from
// not ready to ready once, in Initialize, and never back.
type RAGService struct {
	completion         CompletionClient
	apiKey             string
	retriever          MenuRetriever
	timeout            time.Duration
	metrics            observability.LLMMetrics
	performanceLogging bool

	ready atomic.Bool
}

// RAGServiceParams configures RAGService. Completion may be nil (assistant disabled).
type RAGServiceParams struct {
	Completion         CompletionClient
	APIKey             string
	Retriever          MenuRetriever
	Timeout            time.Duration
	Metrics            observability.LLMMetrics
	PerformanceLogging bool
}

// NewRAGService creates an uninitialized RAGService.
func NewRAGService(p RAGServiceParams) *RAGService {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}

	return &RAGService{
		completion:         p.Completion,
		apiKey:             p.APIKey,
		retriever:          p.Retriever,
		timeout:            timeout,
		metrics:            p.Metrics,
		performanceLogging: p.PerformanceLogging,
	}
}

// Initialize marks the service ready when a completion client with a usable
// credential is configured. Without one the service stays disabled for the
// life of the process. Safe to call more than once.
func (s *RAGService) Initialize(ctx context.Context) {
	if s.ready.Load() {
		return
	}

	if s.completion == nil || !config.HasUsableCredential(strings.TrimSpace(s.apiKey)) {
		slog.WarnContext(ctx, "LLM API key not configured, RAG disabled")

		return
	}

	s.ready.Store(true)
	slog.InfoContext(ctx, "RAG service initialized")
}

// IsReady reports whether Initialize succeeded.
func (s *RAGService) IsReady() bool {
	return s.ready.Load()
}

// Status reports assistant readiness for the status endpoint.
func (s *RAGService) Status() models.AssistantStatus {
	status := models.AssistantStatus{Agent: s.IsReady(), RAG: s.IsReady()}
	if s.retriever != nil {
		status.VectorStore = s.retriever.IsInitialized()
		status.MenuItems = s.retriever.Len()
	}

	return status
}

// Ask answers one question. It never returns an error: every failure maps to a fixed answer.
func (s *RAGService) Ask(ctx context.Context, question string) models.Answer {
	return s.answer(ctx, question, nil)
}

// Chat answers message with the last turns of history replayed before it.
func (s *RAGService) Chat(ctx context.Context, message string, history []models.ChatMessage) models.ChatResponse {
	ans := s.answer(ctx, message, recentHistory(history))

	resp := models.ChatResponse{Response: ans.Answer, Sources: ans.Sources}
	if len(ans.Sources) > 0 {
		resp.ToolsUsed = []models.ToolUse{{Tool: MenuSearchTool}}
	}

	return resp
}

func (s *RAGService) answer(ctx context.Context, question string, history []models.ChatMessage) models.Answer {
	if !s.IsReady() {
		return fixedAnswer(AnswerUnavailable)
	}

	if s.retriever == nil || !s.retriever.IsInitialized() {
		return fixedAnswer(AnswerStoreUnavailable)
	}

	start := time.Now()

	slog.InfoContext(ctx, "RAG question", "question_length", len(question), "history", len(history))

	results, err := s.retriever.SemanticSearch(ctx, question, ragTopK)
	if err != nil {
		slog.ErrorContext(ctx, "RAG retrieval failed", "error", err)

		return fixedAnswer(AnswerError)
	}

	retrieval := time.Since(start)

	if len(results) == 0 {
		return fixedAnswer(AnswerNoMatch)
	}

	messages := make([]models.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: question})

	genStart := time.Now()
	text, err := completeWithTimeout(ctx, s.completion, s.timeout, models.CompletionRequest{
		System:      buildSystemPrompt(results),
		Messages:    messages,
		Temperature: ragTemperature,
		MaxTokens:   ragMaxTokens,
	})
	generation := time.Since(genStart)

	if s.metrics != nil {
		s.metrics.RecordCall(ctx, observability.OperationAnswer, callOutcome(err), generation)
	}

	if s.performanceLogging {
		slog.InfoContext(ctx, "RAG timings",
			"retrieval_ms", retrieval.Milliseconds(),
			"generation_ms", generation.Milliseconds(),
			"total_ms", time.Since(start).Milliseconds(),
		)
	}

	if err != nil {
		slog.ErrorContext(ctx, "RAG generation failed", "error", err)

		return fixedAnswer(AnswerError)
	}

	slog.InfoContext(ctx, "RAG answer generated", "sources", len(results))

	return models.Answer{Answer: text, Sources: toSources(results)}
}

func fixedAnswer(text string) models.Answer {
	return models.Answer{Answer: text, Sources: []models.Source{}}
}

func toSources(results []models.RetrievalResult) []models.Source {
	sources := make([]models.Source, len(results))
	for i, r := range results {
		sources[i] = models.Source{
			ID:         r.Item.ID,
			Name:       r.Item.Name,
			Price:      r.Item.Price,
			Similarity: math.Round(r.Similarity*100) / 100,
		}
	}

	return sources
}

// recentHistory keeps the last chatHistoryTurn well-formed messages.
func recentHistory(history []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, min(len(history), chatHistoryTurn))

	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}

		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}

		out = append(out, m)
	}

	if len(out) > chatHistoryTurn {
		out = out[len(out)-chatHistoryTurn:]
	}

	return out
}
