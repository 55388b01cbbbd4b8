package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the payload nested under "error" in every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes {"error": {...}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// WriteError renders err. Only AppErrors and oversized bodies expose their cause; anything
// else is reported as an opaque internal failure.
func WriteError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds limit", map[string]int64{"max_bytes": tooLarge.Limit})
		return
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	code, message := appErr.Code, appErr.Message
	if code == "" {
		code = "INTERNAL"
	}
	if message == "" {
		message = "internal error"
	}
	details := appErr.Details
	var syntaxErr *json.SyntaxError
	if details == nil && errors.As(appErr.Err, &syntaxErr) {
		details = map[string]int64{"offset": syntaxErr.Offset}
	}
	JSONError(w, appErr.Status(), code, message, details)
}
