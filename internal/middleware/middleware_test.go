package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reservation-api/internal/models"
	"reservation-api/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) *services.AuthService {
	t.Helper()
	svc, err := services.NewAuthService(testSecret, time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return svc
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthentication_ValidToken(t *testing.T) {
	svc := newAuthService(t)
	token, err := svc.GenerateToken(42, string(models.RoleCustomer))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	called := false
	h := Authentication(svc, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		id, ok := GetUserID(r)
		if !ok || id != 42 {
			t.Fatalf("user id not set: %v %v", id, ok)
		}
		role, ok := GetUserRole(r)
		if !ok || role != "customer" {
			t.Fatalf("role not set: %v %v", role, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthentication_Rejections(t *testing.T) {
	svc := newAuthService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &services.Claims{
		UserID: 1,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &services.Claims{
		UserID: 1,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", MsgMissingToken},
		{"wrong scheme", "Basic abc", MsgMissingToken},
		{"empty bearer", "Bearer ", MsgMissingToken},
		{"garbage", "Bearer not-a-token", MsgInvalidToken},
		{"expired", "Bearer " + expiredToken, MsgInvalidToken},
		{"wrong secret", "Bearer " + foreign, MsgInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			called := false
			Authentication(svc, zerolog.Nop())(okHandler(&called)).ServeHTTP(rec, req)

			if called {
				t.Fatalf("next must not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Message != tc.message {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newAuthService(t)

	cases := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"customer", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			token, err := svc.GenerateToken(7, tc.role)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			req := httptest.NewRequest(http.MethodPost, "/restaurants", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			called := false
			h := Authentication(svc, zerolog.Nop())(RequireAdmin()(okHandler(&called)))
			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusForbidden {
				if called {
					t.Fatalf("next must not be called")
				}
				if env := decodeEnvelope(t, rec); env.Message != MsgAdminsOnly {
					t.Fatalf("unexpected message %q", env.Message)
				}
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	called := false
	h := rl.Middleware()(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestErrorHandling_RecoversPanic(t *testing.T) {
	h := ErrorHandling(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestRequestValidation(t *testing.T) {
	called := false
	h := RequestValidation()(okHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("json request should pass, got %d", rec.Code)
	}
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	called := false
	h := RequestLogging(zerolog.Nop())(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Bearer":       "",
		"Token abc":    "",
		"":             "",
	}
	for in, want := range cases {
		if got := bearerToken(in); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestLogging_ExposesRequestIDToHandlers(t *testing.T) {
	var seen string
	h := RequestLogging(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "req-42" {
		t.Fatalf("expected request id in context, got %q", seen)
	}

	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("expected empty id outside RequestLogging, got %q", got)
	}
}
