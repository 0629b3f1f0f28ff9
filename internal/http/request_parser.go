// Package http exposes the ledger as a JSON API.
//
// This file implements utilities for parsing and validating request data:
// body decoding, the caller's identity, amounts, dates and scopes.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
)

// HeaderUserID identifies the ledger owner on every API call.
const HeaderUserID = "X-User-ID"

const maxBodyBytes = 1 << 20

var (
	errMissingUser = errors.New("missing " + HeaderUserID + " header")
	errBadBody     = errors.New("malformed request body")
)

// requestError is a client mistake detected before the ledger is reached.
type requestError struct {
	status int
	kind   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, kind: "bad_request", err: fmt.Errorf(format, args...)}
}

// userID returns the caller's user id.
func userID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", &requestError{status: http.StatusUnauthorized, kind: "unauthorized", err: errMissingUser}
	}
	return id, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and bodies larger than 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("%v: empty body", errBadBody)
		}
		return badRequest("%v: %v", errBadBody, err)
	}
	if dec.More() {
		return badRequest("%v: trailing data", errBadBody)
	}
	return nil
}

// parseAmount converts a user-entered positive decimal ("12.34" or "12,34")
// to cents.
func parseAmount(field, s string) (int64, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, core.Validationf("invalid %s %q", field, s)
	}
	return cents, nil
}

// parseDiscount is parseAmount that accepts an empty value or zero.
func parseDiscount(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	cents, err := core.ParseNonNegativeCents(s)
	if err != nil {
		return 0, core.Validationf("invalid discount %q", s)
	}
	return cents, nil
}

// parseDate parses an optional YYYY-MM-DD value.
func parseDate(field, s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.Validationf("invalid %s %q: use YYYY-MM-DD", field, s)
	}
	return d, nil
}

func parsePeriod(s string) (core.Period, error) {
	p, err := core.ParsePeriod(strings.TrimSpace(s))
	if err != nil {
		return core.Period{}, core.Validationf("invalid period %q: use YYYY-MM", s)
	}
	return p, nil
}

func parseScope(r *http.Request) (ledger.Scope, error) {
	return ledger.ParseScope(r.URL.Query().Get("scope"))
}

// optionalString sanitizes a pointer field, keeping nil as "unchanged".
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
