package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func providerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ProviderID(r.Context())))
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestBearerAuth(t *testing.T) {
	h := BearerAuth(testSecret, false)(providerEcho())

	token, err := IssueToken(testSecret, "dr-ada", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dr-ada", rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong, err := IssueToken("other", "dr-ada", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wrong)
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	expired, err := IssueToken(testSecret, "dr-ada", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestBearerAuth_NoSecret(t *testing.T) {
	rec := serve(BearerAuth("", true)(providerEcho()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DevProviderID, rec.Body.String())

	rec = serve(BearerAuth("", false)(providerEcho()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	keys := ParseAPIKeys("k1:dorra, k2 ,")
	assert.Equal(t, map[string]string{"k1": "dorra", "k2": "k2"}, keys)

	h := APIKeyAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetClientID(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", "k1")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dorra", rec.Body.String())

	req.Header.Set("X-API-Key", "nope")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestRecoverAndRequestID(t *testing.T) {
	h := RequestID(Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
