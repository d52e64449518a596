package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func EncodeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	response := ErrorResponse{Error: msg}
	_ = json.NewEncoder(w).Encode(response)
}

func Encode[T any](w http.ResponseWriter, status int, v T) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}

	return v, nil
}

// DecodeForm merges query and url-encoded body parameters, the wire shape
// of redirect-based protocol exchanges.
func DecodeForm(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	return r.Form, nil
}
