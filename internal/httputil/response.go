package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status
// code. Authentication failures against the upstream broker are collapsed to
// a generic 401: the verbatim upstream body stays in the server log only.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}

	switch appErr.Code {
	case apperrors.ErrCodeExternalAuthFailed,
		apperrors.ErrCodeHandshakeFailed,
		apperrors.ErrCodeInvalidSecretFormat:
		response.Error = "invalid credentials"
		response.Code = apperrors.ErrCodeUnauthorized
		response.Details = nil
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeStorage,
		apperrors.ErrCodeRefresh:
		response.Details = nil
	}

	WriteJSON(w, statusFromCode(appErr.Code), response)
}

// WriteErrorWithStatus writes an error with a specific HTTP status code
func WriteErrorWithStatus(w http.ResponseWriter, status int, err *apperrors.AppError) {
	response := ErrorResponse{
		Error:   err.Message,
		Code:    err.Code,
		Details: err.Details,
	}
	WriteJSON(w, status, response)
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeExternalAuthFailed,
		apperrors.ErrCodeHandshakeFailed,
		apperrors.ErrCodeInvalidSecretFormat:
		return http.StatusUnauthorized

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeConflict:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeRefresh:
		return http.StatusBadGateway

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeStorage:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
