// Package shared holds the JSON envelope helpers used by every handler so
// error rendering stays consistent across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "eventreg/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope. Validation errors carry the full
// field-attributed reason set so a presentation layer can show each message
// beside the relevant input.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message,omitempty"`
	Reasons []dErrors.Reason `json:"reasons,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the HTTP envelope. Unknown errors
// render as a generic operational failure, never as a validation message.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(domainErr.Code), ErrorResponse{
		Error:   string(domainErr.Code),
		Message: domainErr.Message,
		Reasons: domainErr.Reasons,
	})
}
