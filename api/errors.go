package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ruteri/identity-registry/interfaces"
)

// Codes used for failures outside the registry error taxonomy.
const (
	CodeBadRequest      = "BadRequest"
	CodeUnauthenticated = "Unauthenticated"
	CodeRateLimited     = "RateLimited"
	CodeInternal        = "Internal"
	CodeNotFound        = "NotFound"
)

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch interfaces.KindOf(err) {
	case interfaces.KindAuthorization:
		return http.StatusForbidden
	case interfaces.KindNotFound:
		return http.StatusNotFound
	case interfaces.KindConflict:
		return http.StatusConflict
	case interfaces.KindValidation:
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrMissingAuthHeaders) || errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrStaleRequest) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Internal errors are reported
// without their message.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: interfaces.CodeOf(err), Message: err.Error()}
	switch {
	case resp.Error != "":
	case status == http.StatusUnauthorized:
		resp.Error = CodeUnauthenticated
	default:
		resp.Error = CodeInternal
		resp.Message = "internal error"
	}
	WriteJSON(w, status, resp)
}

// WriteBadRequest reports a malformed request.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeBadRequest, Message: message})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
