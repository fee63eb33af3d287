package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fremancer/fremancer/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// WriteError maps a service error to its HTTP status. Unknown errors
// become opaque 500s so internals never leak to the client.
func WriteError(w http.ResponseWriter, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	var details any
	var e *apperr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		details = e.Fields
	}
	switch kind {
	case apperr.KindValidation, apperr.KindExternal:
		JSONError(w, http.StatusBadRequest, err.Error(), details)
	case apperr.KindConflict:
		JSONError(w, http.StatusConflict, err.Error(), details)
	case apperr.KindImmutable:
		JSONError(w, http.StatusConflict, err.Error(), details)
	case apperr.KindAuthorization:
		JSONError(w, http.StatusForbidden, err.Error(), details)
	case apperr.KindNotFound:
		JSONError(w, http.StatusNotFound, err.Error(), details)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
