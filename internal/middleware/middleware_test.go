package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated request id %q is not a UUID: %v", seen, err)
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header = %q, context = %q", got, seen)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "upstream-id" {
		t.Errorf("incoming request id not kept, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    1,
		RateLimitBurst:  2,
	})
	h := RateLimit(limiter, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 3)
	for i := range codes {
		r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}

func TestRateLimit_HealthAndRetryAfter(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 1})
	h := RateLimit(limiter, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "10.0.0.2:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	serve("/api/sales")
	limited := serve("/api/regions")
	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Error("429 responses should carry Retry-After")
	}

	for range 3 {
		if w := serve("/health"); w.Code != http.StatusOK {
			t.Errorf("health probe status = %d, want 200", w.Code)
		}
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false, RateLimitRPS: 1, RateLimitBurst: 1})
	for range 10 {
		if !limiter.Allow("10.0.0.3") {
			t.Fatal("a disabled limiter should allow everything")
		}
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 5, RateLimitBurst: 5})
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	now = now.Add(2 * time.Minute)

	if removed := limiter.Sweep(VisitorIdle); removed != 1 {
		t.Errorf("Sweep() removed %d visitors, want 1", removed)
	}
	if _, ok := limiter.visitors["10.0.0.2"]; !ok {
		t.Error("recent visitor should be kept")
	}
	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor should be removed")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := w.Header().Get("Content-Security-Policy")
	for _, want := range []string{"img-src 'self'", "https://cdn.jsdelivr.net"} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP %q should contain %q", csp, want)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should only be sent over TLS")
	}
}

func TestTrustedProxy(t *testing.T) {
	var seen string
	h := TrustedProxy(config.SecurityConfig{TrustedProxies: []string{"127.0.0.1"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = clientIP(r)
		}))

	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"trusted proxy forwards client", "127.0.0.1:4000", "203.0.113.7"},
		{"untrusted peer is used directly", "198.51.100.9:4000", "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
			r.RemoteAddr = tt.remoteAddr
			r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			h.ServeHTTP(httptest.NewRecorder(), r)

			if seen != tt.want {
				t.Errorf("client ip = %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestLoggerAndTracing(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLoggerTo(&buf, config.LoggerConfig{Level: "debug", Format: "json"})

	h := Chain(RequestID(), Logger(logger), Tracing(logger))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, "not enough history")
		}))

	r := httptest.NewRequest(http.MethodGet, "/api/forecast?horizon=3", nil)
	r.Header.Set("X-Request-ID", "req-7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	var access, span map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		switch entry["msg"] {
		case "request completed":
			access = entry
		case "span finished":
			span = entry
		}
	}

	if access == nil || span == nil {
		t.Fatalf("expected access and span lines, got %s", buf.String())
	}
	if access["status"] != float64(http.StatusUnprocessableEntity) || access["bytes"] != float64(len("not enough history")) {
		t.Errorf("access line = %v", access)
	}
	if access["request_id"] != "req-7" {
		t.Errorf("access request_id = %v", access["request_id"])
	}
	spanAttrs, _ := span["span"].(map[string]any)
	if spanAttrs["status"] != "ERROR" || spanAttrs["http.query"] != "horizon=3" {
		t.Errorf("span = %v", spanAttrs)
	}
}

func TestCORS(t *testing.T) {
	h := CORS(config.SecurityConfig{AllowedOrigins: []string{"http://localhost:8084"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

	r := httptest.NewRequest(http.MethodOptions, "/api/sales", nil)
	r.Header.Set("Origin", "http://localhost:8084")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8084" {
		t.Errorf("allow-origin = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	r.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q for unknown origin", got)
	}
}

func TestCompression(t *testing.T) {
	compress, err := Compression()
	if err != nil {
		t.Fatalf("Compression() error = %v", err)
	}

	body := strings.Repeat(`{"region":"North America","total":123.45}`, 200)
	h := compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("content-encoding = %q, want gzip", got)
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decoded) != body {
		t.Error("decompressed body does not match")
	}

	r = httptest.NewRequest(http.MethodGet, "/sse/overview", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("event streams must not be compressed, got %q", got)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, "") != "abc" {
		t.Errorf("middleware order = %v, want a, b, c", order)
	}
}
