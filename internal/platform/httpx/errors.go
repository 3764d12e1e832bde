package httpx

import (
	"errors"
	"net/http"

	"github.com/mpi-retail/mpi/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Validation failures are
// the only 400s; not-found and conflicts get their own statuses; everything
// else is an opaque 500 so storage details never leak to callers.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Errors: verr.Violations,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidConfig):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Configuration", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
