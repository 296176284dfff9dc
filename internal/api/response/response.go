package response

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func OK(w http.ResponseWriter, payload any) { JSON(w, http.StatusOK, payload) }

// Error classifies err and writes the error envelope. Internal errors never
// leak their message to the client.
func Error(w http.ResponseWriter, err error) *apierr.Error {
	ae := apierr.From(err)
	msg := "internal error"
	if ae.Status < http.StatusInternalServerError && ae.Err != nil {
		msg = ae.Err.Error()
	}
	JSON(w, ae.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code}})
	return ae
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierr.Invalid("bad json: %v", err)
	}
	return nil
}
