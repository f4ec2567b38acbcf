// Package httputil holds the shared JSON response and error-mapping helpers
// for HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	derrors "bursary/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a coded domain error to an HTTP status. Internal errors
// never leak their message to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	status := http.StatusInternalServerError

	switch code {
	case derrors.CodeInvalidInput:
		status = http.StatusBadRequest
		resp.Description = err.Error()
	case derrors.CodeNotFound:
		status = http.StatusNotFound
		resp.Description = err.Error()
	case derrors.CodeConflict:
		status = http.StatusConflict
		resp.Description = err.Error()
	case derrors.CodeInternal:
		resp.Error = "internal_error"
	}
	WriteJSON(w, status, resp)
}

// Validatable lets request types validate and normalize themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false.
func DecodeAndValidate[T Validatable](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, derrors.New(derrors.CodeInvalidInput, "invalid JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
