// Package httpapi is the thin HTTP/JSON surface spec §6 describes: one
// handler per endpoint, every response shaped
// {success, message, data, token?}, mapping internal/model.Kind errors
// to the status codes spec §7 lists. Grounded on gateway/http_handler.go's
// net/http.ServeMux + method-and-pattern routing style.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// envelope is the response shape every endpoint returns.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Token   *string     `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// writeError maps a model.Kind to the HTTP status spec §7 lists and
// never leaks the wrapped cause to the response body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	var modelErr *model.Error
	if errors.As(err, &modelErr) {
		message = modelErr.Message
	}
	switch model.KindOf(err) {
	case model.KindInvalidArgument:
		status = http.StatusBadRequest
	case model.KindUnauthorized:
		status = http.StatusUnauthorized
	case model.KindForbidden:
		status = http.StatusForbidden
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindFailedPrecondition:
		status = http.StatusBadRequest
	case model.KindConflict:
		status = http.StatusConflict
	case model.KindInternal:
		status = http.StatusInternalServerError
		message = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, model.InvalidArgument(err, "malformed request body"))
		return false
	}
	return true
}
