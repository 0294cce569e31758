package api

import (
	"encoding/json"
	"net/http"

	"github.com/recastops/recast/pkg/errors"
)

// errorBody is the wire form of a failed request.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// statusFor maps an error's code to an HTTP status.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidSource, errors.ErrCodeInvalidTarget,
		errors.ErrCodeInvalidPath, errors.ErrCodeFormat:
		return http.StatusBadRequest
	case errors.ErrCodeDuplicateRegistration:
		return http.StatusConflict
	case errors.ErrCodeIncompatibleIR, errors.ErrCodeCircularDependency, errors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the error envelope, logging server-side failures.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	respondJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    string(errors.GetCode(err)),
		Message: err.Error(),
	}})
}

// decodeJSON decodes a capped request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
