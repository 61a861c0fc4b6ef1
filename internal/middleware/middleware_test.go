package middleware

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"pharma-dashboard/internal/config"
	"pharma-dashboard/internal/observability"
)

var sessionCfg = config.SessionConfig{Capacity: 4, TTL: time.Hour, CookieName: "sales_session"}

func captureSession(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = observability.GetSessionID(r.Context())
	})
}

func TestSession_IssuesCookie(t *testing.T) {
	var got string
	w := httptest.NewRecorder()
	Session(sessionCfg)(captureSession(&got)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("session id %q is not a uuid", got)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != got || !cookies[0].HttpOnly {
		t.Errorf("cookies = %+v", cookies)
	}
}

func TestSession_ReusesClientID(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"header", func(r *http.Request) { r.Header.Set("X-Session-ID", id) }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sales_session", Value: id}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			Session(sessionCfg)(captureSession(&got)).ServeHTTP(w, r)

			if got != id {
				t.Errorf("session = %q, want %q", got, id)
			}
			if len(w.Result().Cookies()) != 0 {
				t.Error("cookie reissued for a known session")
			}
		})
	}
}

func TestSession_RejectsForgedID(t *testing.T) {
	var got string
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Session-ID", "../../etc/passwd")
	Session(sessionCfg)(captureSession(&got)).ServeHTTP(httptest.NewRecorder(), r)

	if got == "../../etc/passwd" {
		t.Error("invalid session id accepted")
	}
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		var tooLarge *http.MaxBytesError
		if !stderrors.As(err, &tooLarge) {
			t.Errorf("err = %v, want *http.MaxBytesError", err)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, "") != "abc" {
		t.Errorf("order = %v", order)
	}
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 2})
	h := RateLimit(limiter, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRateLimit_PerClientState(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    1,
		RateLimitBurst:  1,
		RateLimitIdle:   200 * time.Millisecond,
	})

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.2") {
		t.Fatal("first request from each client should pass")
	}
	if got := limiter.Clients(); got != 2 {
		t.Errorf("clients = %d, want 2", got)
	}

	// An active client keeps its bucket past the idle timeout.
	time.Sleep(120 * time.Millisecond)
	if limiter.Allow("10.0.0.1") {
		t.Error("second request within a second should be limited")
	}
	time.Sleep(120 * time.Millisecond)
	if limiter.Allow("10.0.0.1") {
		t.Error("active client lost its limiter state")
	}
}

func TestRateLimit_IdleClientForgotten(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    1,
		RateLimitBurst:  1,
		RateLimitIdle:   30 * time.Millisecond,
	})

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	time.Sleep(100 * time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Error("idle client should start with a fresh bucket")
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS(config.SecurityConfig{AllowedOrigins: []string{"http://ok.test"}})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	r := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	r.Header.Set("Origin", "http://ok.test")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://ok.test" {
		t.Error("allowed origin not echoed")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID") {
		t.Error("X-Session-ID not allowed")
	}

	r.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin allowed")
	}
}
