package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "12.34", want: 1234},
		{in: "12,34", want: 1234},
		{in: "12.345", want: 1235},
		{in: " 7 ", want: 700},
		{in: "0", wantErr: true},
		{in: "-1.00", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAmount("amount", tt.in)
		if tt.wantErr {
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("parseAmount(%q) error = %v, want validation", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseAmount(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestParseDiscount(t *testing.T) {
	if got, err := parseDiscount(""); err != nil || got != 0 {
		t.Fatalf("empty discount = %d, %v", got, err)
	}
	if got, err := parseDiscount("0"); err != nil || got != 0 {
		t.Fatalf("zero discount = %d, %v", got, err)
	}
	if got, err := parseDiscount("30,00"); err != nil || got != 3000 {
		t.Fatalf("discount = %d, %v", got, err)
	}
	if _, err := parseDiscount("-5"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("negative discount error = %v", err)
	}
}

func TestParseDateAndPeriod(t *testing.T) {
	if d, err := parseDate("due date", ""); err != nil || !d.IsEmpty() {
		t.Fatalf("empty date = %v, %v", d, err)
	}
	if d, err := parseDate("due date", "2024-02-29"); err != nil || d.String() != "2024-02-29" {
		t.Fatalf("date = %v, %v", d, err)
	}
	if _, err := parseDate("due date", "29/02/2024"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("bad date error = %v", err)
	}
	if p, err := parsePeriod("2024-03"); err != nil || p != core.NewPeriod(2024, 3) {
		t.Fatalf("period = %v, %v", p, err)
	}
	if _, err := parsePeriod("2024-3-1"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("bad period error = %v", err)
	}
}

func TestParseScope(t *testing.T) {
	tests := map[string]ledger.Scope{
		"":              ledger.ScopeSingle,
		"?scope=all":    ledger.ScopeAll,
		"?scope=future": ledger.ScopeThisAndFuture,
		"?scope=SINGLE": ledger.ScopeSingle,
	}
	for query, want := range tests {
		got, err := parseScope(httptest.NewRequest(http.MethodGet, "/api/transactions/x"+query, nil))
		if err != nil || got != want {
			t.Errorf("parseScope(%q) = %q, %v; want %q", query, got, err, want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst referenceRequest
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "valid", body: `{"kind":"category","name":"Food"}`, ok: true},
		{name: "empty", body: ``},
		{name: "trailing object", body: `{"kind":"category"}{"kind":"payer"}`},
		{name: "unknown field", body: `{"kind":"category","colour":"red"}`},
		{name: "too large", body: `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/references", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if tt.ok != (err == nil) {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			var reqErr *requestError
			if err != nil && (!errors.As(err, &reqErr) || reqErr.status != http.StatusBadRequest) {
				t.Fatalf("expected a 400 request error, got %v", err)
			}
		})
	}
}

func TestUserIDAndSanitize(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := userID(r); !errors.Is(err, errMissingUser) {
		t.Fatalf("expected missing user error, got %v", err)
	}
	r.Header.Set(HeaderUserID, " u1\x00 ")
	if id, err := userID(r); err != nil || id != "u1" {
		t.Fatalf("userID = %q, %v", id, err)
	}
	if got := sanitizeInput("  a\tb\x07c\n"); got != "a\tbc" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
