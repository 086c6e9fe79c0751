package app

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRequestLogMeta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status     int
		wantLevel  slog.Level
		wantResult string
		wantClass  string
	}{
		{status: 200, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{status: 302, wantLevel: slog.LevelInfo, wantResult: "redirect", wantClass: "3xx"},
		{status: 404, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{status: 503, wantLevel: slog.LevelError, wantResult: "server_error", wantClass: "5xx"},
	}

	for _, tc := range cases {
		level, result := requestLogMeta(tc.status)
		if level != tc.wantLevel || result != tc.wantResult {
			t.Fatalf("status=%d level=%v result=%q; want level=%v result=%q", tc.status, level, result, tc.wantLevel, tc.wantResult)
		}
		if got := statusClass(tc.status); got != tc.wantClass {
			t.Fatalf("statusClass(%d)=%q want=%q", tc.status, got, tc.wantClass)
		}
	}
}

func TestWithCORS(t *testing.T) {
	t.Parallel()

	cfg := Config{
		CORSAllowedOrigins:   []string{"https://app.example.com", "http://127.0.0.1:*"},
		CORSAllowCredentials: true,
		CORSMaxAgeSeconds:    600,
	}

	cases := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantNext    bool
		wantMaxAge  string
		wantCredsOK bool
	}{
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK, wantNext: true},
		{
			name: "preflight", method: http.MethodOptions, origin: "https://app.example.com", preflight: true,
			wantStatus: http.StatusNoContent, wantOrigin: "https://app.example.com", wantMaxAge: "600", wantCredsOK: true,
		},
		{
			name: "simple request", method: http.MethodPost, origin: "https://app.example.com",
			wantStatus: http.StatusOK, wantOrigin: "https://app.example.com", wantNext: true, wantCredsOK: true,
		},
		{
			name: "wildcard port", method: http.MethodGet, origin: "http://127.0.0.1:55123",
			wantStatus: http.StatusOK, wantOrigin: "http://127.0.0.1:55123", wantNext: true, wantCredsOK: true,
		},
		{name: "wildcard needs a port", method: http.MethodGet, origin: "http://127.0.0.1:abc", wantStatus: http.StatusForbidden},
		{name: "denied", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

			req := httptest.NewRequest(tc.method, "/auth/login", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status=%d want=%d", rr.Code, tc.wantStatus)
			}
			if called != tc.wantNext {
				t.Fatalf("next called=%v want=%v", called, tc.wantNext)
			}
			hdr := rr.Header()
			if got := hdr.Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin=%q want=%q", got, tc.wantOrigin)
			}
			if got := hdr.Get("Access-Control-Max-Age"); got != tc.wantMaxAge {
				t.Fatalf("max-age=%q want=%q", got, tc.wantMaxAge)
			}
			if got := hdr.Get("Access-Control-Allow-Credentials") == "true"; got != tc.wantCredsOK {
				t.Fatalf("allow-credentials=%v want=%v", got, tc.wantCredsOK)
			}
		})
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff: %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("missing frame options: %q", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("missing referrer policy: %q", got)
	}
}

func TestWithRequestLogging_LevelAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := WithRequestLogging(mux, log, m)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"result":"client_error"`) {
		t.Fatalf("401 should log as client_error warning: %s", out)
	}
	if !strings.Contains(out, `"route":"GET /me"`) || !strings.Contains(out, `"route":"unmatched"`) {
		t.Fatalf("route labels missing: %s", out)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != "pedeai_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 requests counted, got %v", total)
	}
}

func TestWithRequestLogging_NilMetrics(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}), log, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected response: %d %q", rr.Code, rr.Body.String())
	}
}
