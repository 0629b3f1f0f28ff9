package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{name: "validation", err: core.Validation("name is required"), status: http.StatusUnprocessableEntity, kind: "validation", message: "name is required"},
		{name: "not found", err: core.NotFound("series %s not found", "s1"), status: http.StatusNotFound, kind: "not_found", message: "series s1 not found"},
		{name: "conflict", err: core.Conflict("changed concurrently"), status: http.StatusConflict, kind: "concurrency_conflict", message: "changed concurrently"},
		{name: "storage hides cause", err: core.Storage("insert instances", errors.New("disk I/O error")), status: http.StatusInternalServerError, kind: "storage", message: "the operation could not be completed, nothing was changed"},
		{name: "foreign error is storage", err: errors.New("boom"), status: http.StatusInternalServerError, kind: "storage", message: "the operation could not be completed, nothing was changed"},
		{name: "request error", err: badRequest("bad %s", "thing"), status: http.StatusBadRequest, kind: "bad_request", message: "bad thing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Fatalf("Content-Type = %q", ct)
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Kind != tt.kind || body.Error.Message != tt.message {
				t.Fatalf("body = %+v", body.Error)
			}
		})
	}
}

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusCreated).Header("Location", "/api/transactions/1").Body(map[string]int{"count": 1}).Write(rec)

	if rec.Code != http.StatusCreated || rec.Header().Get("Location") != "/api/transactions/1" {
		t.Fatalf("unexpected response: %d %v", rec.Code, rec.Header())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"count":1}` {
		t.Fatalf("body = %s", got)
	}

	rec = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 || rec.Header().Get("Content-Type") != "" {
		t.Fatalf("empty response carried a body: %q", rec.Body.String())
	}
}
