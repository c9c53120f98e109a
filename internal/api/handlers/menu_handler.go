package handlers

import (
	"context"
	"net/http"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/api/validation"
	"github.com/tablebite/ordering/internal/models"
)

// MenuService returns menus by source.
type MenuService interface {
	GetMenu(ctx context.Context, source string) ([]models.MenuItem, error)
}

// MenuHandler serves the menu.
type MenuHandler struct {
	service MenuService
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(service MenuService) *MenuHandler {
	return &MenuHandler{service: service}
}

// Get handles GET /api/menu
// @Summary Get the menu
// @Description Returns the live (LLM-generated) menu, or the static catalog. The live menu falls back to the static catalog on any provider failure.
// @Tags Menu
// @Produce json
// @Param type query string false "static, or live (default for any other value)"
// @Success 200 {array} MenuItem
// @Failure 400 {object} ProblemDetails
// @Router /api/menu [get]
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	var query models.MenuQuery
	if err := validation.ValidateAndDecodeQueryParams(r, &query); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	source := models.MenuSourceLive
	if query.Type == models.MenuSourceStatic {
		source = models.MenuSourceStatic
	}

	items, err := h.service.GetMenu(r.Context(), source)
	if err != nil {
		respondServiceError(w, r, err, "")

		return
	}

	response.RespondJSON(w, http.StatusOK, items)
}
