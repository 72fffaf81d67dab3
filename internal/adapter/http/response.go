package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string, fields []domain.FieldError) {
	writeJSON(w, status, interfaces.ErrorResponse{
		Error:     message,
		Code:      code,
		Errors:    fields,
		RequestID: requestIDFrom(r.Context()),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", "invalid_body", nil)
		return false
	}
	return true
}

// writeServiceError maps domain failures onto status codes. Anything
// unrecognised is logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logger.Logger, action string, err error) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeError(w, r, http.StatusBadRequest, "Validation failed", "validation_failed", verrs)
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, "Cart is empty", "empty_cart", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Not found", "not_found", nil)
	case errors.Is(err, domain.ErrSlotUnavailable):
		writeError(w, r, http.StatusConflict, "Not enough seats left in this slot", "slot_unavailable", nil)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		writeError(w, r, http.StatusConflict, err.Error(), "invalid_status_transition", nil)
	case errors.Is(err, domain.ErrOrderNotEditable):
		writeError(w, r, http.StatusConflict, err.Error(), "order_not_editable", nil)
	case errors.Is(err, domain.ErrIdempotencyInProgress):
		writeError(w, r, http.StatusConflict, err.Error(), "idempotency_in_progress", nil)
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error(), "idempotency_mismatch", nil)
	default:
		log.Error(action, "Request failed", requestIDFrom(r.Context()), map[string]interface{}{
			"path": r.URL.Path,
		}, err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error", "internal_error", nil)
	}
}
