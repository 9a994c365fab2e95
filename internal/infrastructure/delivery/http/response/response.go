// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"tubefetch/internal/errs"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"` // phase error kind
	Hint    string `json:"hint,omitempty"`
	Data    any    `json:"data"`
}

// New builds the envelope. Phase errors contribute their kind and hint.
func New(message string, data any, err error) Response {
	r := Response{
		Message: message,
		Data:    data,
	}

	if err == nil {
		return r
	}

	r.Error = err.Error()

	var pe *errs.PhaseError
	if errors.As(err, &pe) {
		r.Kind = pe.Kind.Error()
		r.Hint = pe.Hint
	}

	return r
}

func WriteJSON(w http.ResponseWriter, status int, message string, data any, err error) {
	bytes, err := json.Marshal(New(message, data, err))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, _ = w.Write(bytes)
}

func OK(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusOK, message, res, err)
}

func BadRequest(w http.ResponseWriter, message string, err error) {
	WriteJSON(w, http.StatusBadRequest, message, nil, err)
}

func NotFound(w http.ResponseWriter, message string, err error) {
	WriteJSON(w, http.StatusNotFound, message, nil, err)
}

func UnprocessableEntity(w http.ResponseWriter, message string, err error) {
	WriteJSON(w, http.StatusUnprocessableEntity, message, nil, err)
}

func InternalServerError(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusInternalServerError, message, res, err)
}
