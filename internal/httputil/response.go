package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/redmonkez12/account-api/internal/apperr"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors"`
}

// DataResponse wraps a successful payload
type DataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondData sends a successful envelope with a message and payload.
func RespondData(w http.ResponseWriter, data any, message string, statusCode int) {
	if data == nil {
		data = struct{}{}
	}
	RespondJSON(w, DataResponse{Success: true, Message: message, Data: data}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Message: message, Code: code, Errors: []string{}}, statusCode)
}

// RespondAppError translates err into a response. Anything that is not an
// *apperr.Error, and every Internal error, is reported with a generic message.
func RespondAppError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr == nil || appErr.Kind == apperr.Internal {
		RespondErrorWithCode(w, "Internal Server Error", string(apperr.Internal), http.StatusInternalServerError)
		return
	}

	details := appErr.Details
	if details == nil {
		details = []string{}
	}
	RespondJSON(w, ErrorResponse{
		Message: appErr.Message,
		Code:    string(appErr.Kind),
		Errors:  details,
	}, appErr.Kind.HTTPStatus())
}
