package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

const internalErrorDetail = "internal server error"

// badRequestError marks a body that could not be decoded at all.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeError maps err onto the API error taxonomy. Unclassified errors are
// logged and answered with a generic 500 so storage details never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		bad        *badRequestError
		validation *core.ValidationError
		notFound   *core.NotFoundError
		conflict   *core.ConflictError
	)
	switch {
	case errors.As(err, &bad):
		s.errors.LogDomainError(r.Context(), r, err, log.ErrorTypeValidation, http.StatusBadRequest)
		writeDetail(w, http.StatusBadRequest, bad.msg)
	case errors.As(err, &validation):
		s.errors.LogDomainError(r.Context(), r, err, log.ErrorTypeValidation, http.StatusUnprocessableEntity)
		writeDetail(w, http.StatusUnprocessableEntity, validation.Message)
	case errors.As(err, &notFound):
		s.errors.LogDomainError(r.Context(), r, err, log.ErrorTypeNotFound, http.StatusNotFound)
		writeDetail(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		s.errors.LogDomainError(r.Context(), r, err, log.ErrorTypeConflict, http.StatusConflict)
		writeDetail(w, http.StatusConflict, conflict.Message)
	default:
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "")
		s.errors.LogError(r.Context(), "Request failed", err, op, fields)
		writeDetail(w, http.StatusInternalServerError, internalErrorDetail)
	}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &badRequestError{msg: "request body is empty"}
		case errors.As(err, &maxErr):
			return &badRequestError{msg: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
		default:
			return &badRequestError{msg: "invalid JSON body: " + err.Error()}
		}
	}
	if dec.More() {
		return &badRequestError{msg: "request body must contain a single JSON object"}
	}
	return nil
}
