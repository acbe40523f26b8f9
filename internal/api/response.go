package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/opname/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

type validationResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields"`
}

type storeErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	var serr *model.StoreError

	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, validationResponse{Error: verr.Error(), Fields: verr.Errors})
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicate):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, model.ErrInvalidState):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.As(err, &serr):
		slog.Error("store call failed", "op", serr.Op, "error", serr.Err)
		jsonResponse(w, http.StatusServiceUnavailable, storeErrorResponse{
			Error:     "storage unavailable",
			Retryable: serr.Retryable,
		})
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
