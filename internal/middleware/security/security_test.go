package security

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gladysonss/opensheets-app-sub000/internal/log"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(log.New(log.Config{Output: &bytes.Buffer{}}))

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "direct client", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted proxy headers ignored", remoteAddr: "203.0.113.7:5000", xff: "198.51.100.1", want: "203.0.113.7"},
		{name: "trusted proxy forwarded for", remoteAddr: "10.0.0.2:80", xff: "198.51.100.1, 10.0.0.3", want: "198.51.100.1"},
		{name: "trusted proxy real ip", remoteAddr: "127.0.0.1:80", xri: "198.51.100.9", want: "198.51.100.9"},
		{name: "trusted proxy invalid header", remoteAddr: "192.168.1.1:80", xff: "not-an-ip", want: "192.168.1.1"},
		{name: "unparsable remote addr", remoteAddr: "garbage", want: "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(nil)
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Fatal("expected CIDR error")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Fatalf("ExtractClientIP() = %q", got)
	}
}

func TestDetectorMiddleware(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector(log.New(log.Config{Format: "json", Output: &buf}))
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   int
	}{
		{name: "api call", method: http.MethodGet, target: "/api/series/s1", want: http.StatusNoContent},
		{name: "path traversal", method: http.MethodGet, target: "/api/../.env", want: http.StatusBadRequest},
		{name: "traversal in query", method: http.MethodGet, target: "/api/series/s1?file=../../etc/passwd", want: http.StatusBadRequest},
		{name: "scanner agent", method: http.MethodGet, target: "/healthz", agent: "sqlmap/1.7", want: http.StatusBadRequest},
		{name: "trace method", method: "TRACE", target: "/healthz", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if got := d.GetMetrics().BlockedRequests; got != 4 {
		t.Fatalf("BlockedRequests = %d, want 4", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}
