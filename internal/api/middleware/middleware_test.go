package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/vslpipeline/internal/api/middleware"
	"github.com/kiranshivaraju/vslpipeline/internal/testsupport"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock key store ---

type mockKeys struct {
	mu       sync.Mutex
	keys     []*models.APIKey
	err      error
	prefixes []string
}

func (m *mockKeys) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes = append(m.prefixes, prefix)
	return m.keys, m.err
}

func (m *mockKeys) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func hashKey(t *testing.T, rawKey string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func keyWithScopes(t *testing.T, rawKey string, scopes ...string) *models.APIKey {
	t.Helper()
	return &models.APIKey{
		ID:        uuid.New(),
		Name:      "ops",
		KeyHash:   hashKey(t, rawKey),
		KeyPrefix: rawKey[:mw.KeyPrefixLen],
		Scopes:    scopes,
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bearer(rawKey string) *http.Request {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	return req
}

// ========================================
// Auth Middleware Tests
// ========================================

func TestAuth_MissingAuthHeader(t *testing.T) {
	handler := mw.NewAuth(&mockKeys{}).Authenticate(okHandler())

	w := serve(handler, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errBody(t, w)["code"])
}

func TestAuth_InvalidBearerFormat(t *testing.T) {
	handler := mw.NewAuth(&mockKeys{}).Authenticate(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Basic abc123")

	assert.Equal(t, http.StatusUnauthorized, serve(handler, req).Code)
}

func TestAuth_KeyTooShort(t *testing.T) {
	keys := &mockKeys{}
	handler := mw.NewAuth(keys).Authenticate(okHandler())

	assert.Equal(t, http.StatusUnauthorized, serve(handler, bearer("short")).Code)
	assert.Empty(t, keys.prefixes, "no lookup for malformed keys")
}

func TestAuth_KeyNotFound(t *testing.T) {
	handler := mw.NewAuth(&mockKeys{keys: []*models.APIKey{}}).Authenticate(okHandler())

	assert.Equal(t, http.StatusUnauthorized, serve(handler, bearer("vsl_test1234567890")).Code)
}

func TestAuth_LookupError(t *testing.T) {
	handler := mw.NewAuth(&mockKeys{err: errors.New("db down")}).Authenticate(okHandler())

	w := serve(handler, bearer("vsl_test1234567890"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestAuth_WrongSecret(t *testing.T) {
	rawKey := "vsl_test1234567890abcdef"
	stored := keyWithScopes(t, "vsl_testdifferent_entirely", models.ScopeAdmin)
	handler := mw.NewAuth(&mockKeys{keys: []*models.APIKey{stored}}).Authenticate(okHandler())

	assert.Equal(t, http.StatusUnauthorized, serve(handler, bearer(rawKey)).Code)
}

func TestAuth_ValidKey(t *testing.T) {
	rawKey := "vsl_test1234567890abcdef"
	keys := &mockKeys{keys: []*models.APIKey{keyWithScopes(t, rawKey, models.ScopeAdmin)}}

	var (
		gotPrefix string
		gotOK     bool
		gotName   string
	)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefix, gotOK = mw.KeyPrefix(r)
		gotName = mw.KeyName(r)
		w.WriteHeader(http.StatusOK)
	})

	w := serve(mw.NewAuth(keys).Authenticate(inner), bearer(rawKey))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOK)
	assert.Equal(t, "vsl_test", gotPrefix)
	assert.Equal(t, "ops", gotName)
	assert.Equal(t, []string{"vsl_test"}, keys.prefixes)
}

func TestAuth_RequireScope_Allowed(t *testing.T) {
	rawKey := "vsl_admn1234567890abcdef"
	auth := mw.NewAuth(&mockKeys{keys: []*models.APIKey{keyWithScopes(t, rawKey, "read", models.ScopeAdmin)}})

	w := serve(auth.Authenticate(auth.RequireScope(models.ScopeAdmin)(okHandler())), bearer(rawKey))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_RequireScope_Denied(t *testing.T) {
	rawKey := "vsl_read1234567890abcdef"
	auth := mw.NewAuth(&mockKeys{keys: []*models.APIKey{keyWithScopes(t, rawKey, "read")}})

	w := serve(auth.Authenticate(auth.RequireScope(models.ScopeAdmin)(okHandler())), bearer(rawKey))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errBody(t, w)["code"])
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	handler := mw.NewRateLimit(testsupport.NewMemCache(), 60).Limit(okHandler())

	w := serve(handler, httptest.NewRequest("GET", "/api/search?q=x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	handler := mw.NewRateLimit(testsupport.NewMemCache(), 2).Limit(okHandler())

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(handler, httptest.NewRequest("GET", "/test", nil)).Code)
	}
	w := serve(handler, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody(t, w)["code"])
}

func TestRateLimit_CountsPerClientIP(t *testing.T) {
	handler := mw.NewRateLimit(testsupport.NewMemCache(), 1).Limit(okHandler())

	first := httptest.NewRequest("GET", "/test", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	second := httptest.NewRequest("GET", "/test", nil)
	second.RemoteAddr = "10.0.0.2:5000"
	forwarded := httptest.NewRequest("GET", "/test", nil)
	forwarded.RemoteAddr = "10.0.0.9:5000"
	forwarded.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")

	assert.Equal(t, http.StatusOK, serve(handler, first).Code)
	assert.Equal(t, http.StatusOK, serve(handler, second).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, forwarded).Code)
}

func TestRateLimit_CountsPerAPIKey(t *testing.T) {
	rawKey := "vsl_rate1234567890abcdef"
	auth := mw.NewAuth(&mockKeys{keys: []*models.APIKey{keyWithScopes(t, rawKey, models.ScopeAdmin)}})
	handler := auth.Authenticate(mw.NewRateLimit(testsupport.NewMemCache(), 1).Limit(okHandler()))

	first := bearer(rawKey)
	first.RemoteAddr = "10.0.0.1:5000"
	second := bearer(rawKey)
	second.RemoteAddr = "10.0.0.2:5000"

	assert.Equal(t, http.StatusOK, serve(handler, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, second).Code)
}

func TestRateLimit_CacheErrorFailsOpen(t *testing.T) {
	mc := testsupport.NewMemCache()
	mc.Err = errors.New("redis down")
	handler := mw.NewRateLimit(mc, 1).Limit(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(handler, httptest.NewRequest("GET", "/test", nil)).Code)
	}
}

// ========================================
// CORS Middleware Tests
// ========================================

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := mw.CORS([]string{"http://localhost:5173"})(okHandler())

	req := httptest.NewRequest("GET", "/api/search", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(handler, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	handler := mw.CORS([]string{"http://localhost:5173"})(okHandler())

	req := httptest.NewRequest("GET", "/api/search", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := serve(handler, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := mw.CORS([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/urls", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := serve(handler, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.False(t, called)
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	w := serve(mw.Recovery(panicking), httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	w := serve(mw.Recovery(okHandler()), httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_PassesStatusThrough(t *testing.T) {
	teapot := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := serve(mw.Logger(teapot), httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
