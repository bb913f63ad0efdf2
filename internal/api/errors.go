package api

import (
	"errors"
	"net/http"

	"priyom/internal/domain"

	"github.com/rs/zerolog"
)

// statusFor maps a service error to an HTTP status. Order matters: a storage
// insert conflict also wraps the driver error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSlotUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSlotConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOwnerNotFound), errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the mapped status. Server-side failures are
// logged and their details are not sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if code == http.StatusServiceUnavailable {
			writeError(w, code, "storage unavailable")
			return
		}
		writeError(w, code, "internal error")
		return
	}
	if errors.Is(err, domain.ErrAuthorization) {
		writeError(w, code, "not found")
		return
	}
	writeError(w, code, err.Error())
}
