// Package http exposes the ledger as a JSON API.
//
// This file implements the builder used for every JSON response and the
// mapping from ledger errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/middleware/trace"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, kind, message, requestID string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: errorDetail{Kind: kind, Message: message, RequestID: requestID}})
}

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Storage failures are logged with their cause and
// shown with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := trace.GetRequestID(r.Context())

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		ErrorResponse(reqErr.status, reqErr.kind, reqErr.Error(), requestID).Write(w)
		return
	}

	e := core.AsError(err)
	if e.Kind == core.KindStorage {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
	}
	ErrorResponse(statusFor(e.Kind), string(e.Kind), e.UserMessage(), requestID).Write(w)
}
