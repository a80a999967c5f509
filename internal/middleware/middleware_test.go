package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUserID(r.Context()) + "|" + GetRole(r.Context())))
	})
}

func TestAuth(t *testing.T) {
	valid := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Member",
	})
	expired := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, "other", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-42"}})
	noSubject := signToken(t, testSecret, Claims{Role: "Admin"})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "u-42|Member"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "u-42|Member"},
		{"missing", "", http.StatusUnauthorized, "missing authorization header"},
		{"bad format", "Token " + valid, http.StatusUnauthorized, "invalid authorization header format"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "invalid token"},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, "invalid token"},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized, "invalid token"},
	}

	h := Auth(testSecret)(echoUser())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	Anonymous(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "anonymous|Admin", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	member := signToken(t, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}, Role: "Member"})
	admin := signToken(t, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-2"}, Role: "admin"})

	h := Auth(testSecret)(RequireRole(RoleAdmin)(echoUser()))

	for token, want := range map[string]int{member: http.StatusForbidden, admin: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	var seen string
	h := Logging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestRateLimit(t *testing.T) {
	h := Anonymous(RateLimit(2, time.Minute)(echoUser()))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateMessageContent(""))
	assert.NoError(t, ValidateMessageContent("What is MCQ PLUS?"))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", maxContentBytes+1)))
	assert.Error(t, ValidateMessageContent("\xff"))

	assert.NoError(t, ValidateSessionID("0190a4c2-7d3e-7b8a-9c1d-2e3f4a5b6c7d"))
	assert.Error(t, ValidateSessionID("not-a-uuid"))

	assert.NoError(t, ValidateRecordID("1"))
	assert.Error(t, ValidateRecordID(""))
	assert.Error(t, ValidateRecordID(strings.Repeat("x", 65)))

	assert.Error(t, ValidateName(strings.Repeat("n", maxNameBytes+1)))
	assert.Error(t, ValidatePrompt(strings.Repeat("p", 4001)))
}
