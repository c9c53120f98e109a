package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/api/validation"
	"github.com/tablebite/ordering/internal/huberrors"
)

const unexpectedErrorDetail = "An unexpected error occurred"

// respondServiceError maps service errors to Problem Details. Internal details are logged, never returned.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundDetail string) {
	switch {
	case validation.IsValidationError(err):
		validation.RespondValidationError(w, err)
	case errors.Is(err, huberrors.ErrNotFound):
		response.RespondNotFound(w, notFoundDetail)
	case errors.Is(err, huberrors.ErrUnavailable):
		response.RespondServiceUnavailable(w, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, unexpectedErrorDetail)
	}
}
