package httpapi

import (
	"encoding/json"
	"net/http"
)

type errorType string

const (
	errInvalidRequest      errorType = "invalid_request"
	errUnauthorizedRequest errorType = "unauthorized_request"
	errServerError         errorType = "server_error"
)

// requestErrors accumulates per-argument validation failures for one
// request so a client sees every bad field at once. Registering the same
// argument twice is a programming error and panics; the recoverer
// middleware turns that into a 500.
type requestErrors struct {
	reasons map[string]string
}

func newRequestErrors() *requestErrors {
	return &requestErrors{reasons: make(map[string]string)}
}

func (e *requestErrors) addRequired(arg string) {
	e.add(arg, arg+" is required")
}

func (e *requestErrors) addInvalidType(arg string) {
	e.add(arg, arg+" is not the expected type")
}

func (e *requestErrors) addInvalidValue(arg string) {
	e.add(arg, arg+" is not a valid value")
}

func (e *requestErrors) add(arg, reason string) {
	if _, dup := e.reasons[arg]; dup {
		panic("httpapi: duplicate validation argument " + arg)
	}
	e.reasons[arg] = reason
}

func (e *requestErrors) empty() bool { return len(e.reasons) == 0 }

func (e *requestErrors) write(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":             string(errInvalidRequest),
		"error_description": "Request was invalid and was not processed",
		"error_details":     e.reasons,
	})
}

func writeError(w http.ResponseWriter, status int, kind errorType, description string) {
	writeJSON(w, status, map[string]string{
		"error":             string(kind),
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
