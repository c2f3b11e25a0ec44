package httpadapter

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDReusedFromHeader(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/templates", nil)
	req.Header.Set(requestIDHeader, "batch-7f3a")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "batch-7f3a" {
		t.Fatalf("caller-supplied id must reach the context, got %q", seen)
	}
	if rec.Header().Get(requestIDHeader) != "batch-7f3a" {
		t.Fatalf("caller-supplied id must be echoed, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestRequestIDReplacedWhenOversized(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/v1/templates", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get(requestIDHeader)
	if got == "" || len(got) > maxRequestIDLength {
		t.Fatalf("oversized id must be replaced with a generated one, got %q", got)
	}
}

func TestAccessLogSkipsHealthyProbes(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(previous)

	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("healthy probe must not be logged, got %s", buf.String())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Fatalf("failing request must be logged with its status, got %s", buf.String())
	}
}
