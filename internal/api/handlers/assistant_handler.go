package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/api/validation"
	"github.com/tablebite/ordering/internal/models"
)

// AssistantService answers menu questions.
type AssistantService interface {
	Status() models.AssistantStatus
	Ask(ctx context.Context, question string) models.Answer
	Chat(ctx context.Context, message string, history []models.ChatMessage) models.ChatResponse
}

// MenuReindexer queues a rebuild of the assistant's menu index.
type MenuReindexer interface {
	Enqueue(ctx context.Context, source string) (*models.ReindexResponse, error)
}

// AssistantHandler handles the assistant endpoints.
type AssistantHandler struct {
	assistant AssistantService
	reindexer MenuReindexer
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(assistant AssistantService, reindexer MenuReindexer) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, reindexer: reindexer}
}

// Status handles GET /api/assistant/status
// @Summary Assistant readiness
// @Description Reports whether the completion provider, the RAG pipeline and the menu index are ready.
// @Tags Assistant
// @Produce json
// @Success 200 {object} AssistantStatus
// @Router /api/assistant/status [get]
func (h *AssistantHandler) Status(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.assistant.Status())
}

// Ask handles POST /api/assistant/ask
// @Summary Ask a single question about the menu
// @Description Always 200 once the body is valid. An unavailable assistant answers with a fixed message and no sources.
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body AskRequest true "Question"
// @Success 200 {object} Answer
// @Failure 400 {object} ProblemDetails
// @Router /api/assistant/ask [post]
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := validation.DecodeAndValidateJSON(r, &req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, h.assistant.Ask(r.Context(), req.Question))
}

// Chat handles POST /api/assistant/chat
// @Summary Chat about the menu
// @Description The full history may be sent; only the most recent turns reach the model.
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body ChatRequest true "Message and history"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} ProblemDetails
// @Router /api/assistant/chat [post]
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := validation.DecodeAndValidateJSON(r, &req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, h.assistant.Chat(r.Context(), req.Message, req.History))
}

// Reindex handles POST /api/assistant/reindex
// @Summary Rebuild the menu index
// @Description Queues a reindex job. An empty body reindexes the static menu.
// @Tags Assistant
// @Accept json
// @Produce json
// @Param request body ReindexRequest false "Menu source"
// @Success 202 {object} ReindexResponse
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails "Job queue unavailable"
// @Router /api/assistant/reindex [post]
func (h *AssistantHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req models.ReindexRequest

	// Chunked and NoBody requests report ContentLength -1, so emptiness is decided by the decoder.
	if err := validation.DecodeJSON(r, &req); err != nil && !errors.Is(err, validation.ErrEmptyBody) {
		validation.RespondValidationError(w, err)

		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	res, err := h.reindexer.Enqueue(r.Context(), req.Source)
	if err != nil {
		respondServiceError(w, r, err, "")

		return
	}

	response.RespondJSON(w, http.StatusAccepted, res)
}
