package httpx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fromIP(method, target, ip string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = ip + ":40000"
	return req
}

func trustProxies(t *testing.T, entries ...string) {
	t.Helper()
	require.NoError(t, httpx.SetTrustedProxies(entries))
	t.Cleanup(func() { _ = httpx.SetTrustedProxies(nil) })
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		peer    string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", peer: "10.0.0.1", want: "10.0.0.1"},
		{
			name:    "headers ignored without trusted proxies",
			peer:    "198.51.100.4",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "203.0.113.7"},
			want:    "198.51.100.4",
		},
		{
			name:    "headers ignored from untrusted peer",
			trusted: []string{"10.0.0.0/8"},
			peer:    "198.51.100.4",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded for from trusted proxy",
			trusted: []string{"10.0.0.0/8"},
			peer:    "10.0.0.1",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "spoofed leftmost hop is skipped",
			trusted: []string{"10.0.0.0/8"},
			peer:    "10.0.0.1",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9, 10.0.0.2"},
			want:    "203.0.113.9",
		},
		{
			name:    "real ip from trusted proxy",
			trusted: []string{"10.0.0.1"},
			peer:    "10.0.0.1",
			headers: map[string]string{"X-Real-IP": " 203.0.113.7 "},
			want:    "203.0.113.7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trustProxies(t, tt.trusted...)

			req := fromIP(http.MethodGet, "/", tt.peer, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestSetTrustedProxies_Invalid(t *testing.T) {
	t.Cleanup(func() { _ = httpx.SetTrustedProxies(nil) })
	require.Error(t, httpx.SetTrustedProxies([]string{"not-an-ip"}))
	require.Error(t, httpx.SetTrustedProxies([]string{"10.0.0.0/99"}))
}

func TestFieldKeyExtractors(t *testing.T) {
	t.Run("query field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user/check?email=Ada@Example.com", nil)
		require.Equal(t, "ada@example.com", httpx.FormFieldKeyExtractor("email")(req))
	})

	t.Run("json field restores body", func(t *testing.T) {
		body := `{"email":" Ada@Example.com ","password":"pw"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(body))

		require.Equal(t, "ada@example.com", httpx.JSONFieldKeyExtractor("email")(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("json field missing or malformed", func(t *testing.T) {
		ex := httpx.JSONFieldKeyExtractor("email")
		require.Empty(t, ex(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"pw"}`))))
		require.Empty(t, ex(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))))
		require.Empty(t, ex(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":42}`))))
	})

	t.Run("composite skips empty parts", func(t *testing.T) {
		req := fromIP(http.MethodGet, "/", "10.0.0.1", nil)
		ex := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("email"))
		require.Equal(t, "10.0.0.1", ex(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}

	t.Run("rejects after burst", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler())

		for range 2 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, fromIP(http.MethodGet, "/api/events", "10.0.0.1", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, fromIP(http.MethodGet, "/api/events", "10.0.0.1", nil))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "rate_limit_exceeded", body["error"])

		// Another client still has its budget.
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, fromIP(http.MethodGet, "/api/events", "10.0.0.2", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rotating forwarded header does not reset the budget", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler())

		codes := make([]int, 0, 3)
		for i := range 3 {
			req := fromIP(http.MethodPost, "/api/auth/signup", "198.51.100.4", nil)
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("separate middlewares do not share state", func(t *testing.T) {
		a := httpx.RateLimitByIP(cfg)(okHandler())
		b := httpx.RateLimitByIP(cfg)(okHandler())

		for range 2 {
			a.ServeHTTP(httptest.NewRecorder(), fromIP(http.MethodGet, "/", "10.0.0.1", nil))
		}
		rec := httptest.NewRecorder()
		b.ServeHTTP(rec, fromIP(http.MethodGet, "/", "10.0.0.1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("sign-in counted per email", func(t *testing.T) {
		var seen []string
		h := httpx.RateLimitByIPAndJSONField(cfg, "email")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email string `json:"email"`
			}
			require.NoError(t, httpx.DecodeJSON(r, &req))
			seen = append(seen, req.Email)
			w.WriteHeader(http.StatusOK)
		}))

		signin := func(email string) int {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, fromIP(http.MethodPost, "/api/auth/signin", "10.0.0.1",
				strings.NewReader(`{"email":"`+email+`","password":"x"}`)))
			return rec.Code
		}

		require.Equal(t, http.StatusOK, signin("ada@example.com"))
		require.Equal(t, http.StatusOK, signin("ADA@example.com"))
		require.Equal(t, http.StatusTooManyRequests, signin("ada@example.com"))
		require.Equal(t, http.StatusOK, signin("grace@example.com"))
		require.Equal(t, []string{"ada@example.com", "ADA@example.com", "grace@example.com"}, seen)
	})

	t.Run("per user after authn", func(t *testing.T) {
		h := httpx.RateLimitByUser(cfg)(okHandler())
		call := func(sub string) int {
			req := fromIP(http.MethodPut, "/api/user/profile", "10.0.0.1", nil)
			req = req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyUserID, sub))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		require.Equal(t, http.StatusOK, call("u1"))
		require.Equal(t, http.StatusOK, call("u1"))
		require.Equal(t, http.StatusTooManyRequests, call("u1"))
		require.Equal(t, http.StatusOK, call("u2"))
	})
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	t.Setenv("RATELIMIT_TESTING_REQUESTS", "50")
	t.Setenv("RATELIMIT_TESTING_WINDOW_SEC", "10")
	t.Setenv("RATELIMIT_TESTING_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("TESTING", def)
	require.Equal(t, 50, got.RequestsPerWindow)
	require.Equal(t, 10*time.Second, got.Window)
	require.Equal(t, 5, got.Burst)

	require.Equal(t, def, httpx.ParseRateLimitFromEnv("UNSET", def))
}
