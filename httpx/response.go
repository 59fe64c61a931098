// Package httpx holds the JSON helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/invoicer/internal/apperror"
	"github.com/diewo77/invoicer/validation"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Status maps an error kind onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidAsset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrDelivery):
		return http.StatusBadGateway
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error. Field violations are returned as details;
// internal failures are reported without their cause.
func Error(w http.ResponseWriter, err error) {
	status := Status(err)
	var details any
	var v validation.Violations
	if errors.As(err, &v) {
		details = v
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal_error"
	}
	JSONError(w, status, msg, details)
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validation.Violations{"body": "invalid_json"}.Err()
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", apperror.ErrValidation)
	}
	return nil
}
