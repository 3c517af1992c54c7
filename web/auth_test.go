package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-detail-service/config"
	"match-detail-service/services"
)

func newTestServer(t *testing.T) (*Server, services.DetailStore) {
	t.Helper()

	cfg := &config.Config{
		Port:         "0",
		CORSOrigins:  []string{"*"},
		APIKeys:      []string{"test-key"},
		JWTSecret:    "test-secret",
		JWTAlgorithm: "HS256",
	}
	store := services.NewMemoryStore()
	aggregator := services.NewAggregator(store, nil, nil, nil, nil)
	hub := NewHub()
	broadcaster := services.NewMemoryBroadcaster()
	require.NoError(t, broadcaster.Start(hub))

	return NewServer(cfg, store, aggregator, hub, broadcaster), store
}

func patchMeta(t *testing.T, baseURL string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPatch, baseURL+"/api/v1/match-details/M1/meta", strings.NewReader(`{"status":"LIVE"}`))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuth_MissingCredentialsRejected(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp := patchMeta(t, ts.URL, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_UnknownAPIKeyRejected(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp := patchMeta(t, ts.URL, map[string]string{"x-api-key": "wrong"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ValidAPIKeyAccepted(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp := patchMeta(t, ts.URL, map[string]string{"x-api-key": "test-key"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_ValidBearerTokenAccepted(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "tester"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	resp := patchMeta(t, ts.URL, map[string]string{"Authorization": "Bearer " + signed})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_TokenSignedWithWrongSecretRejected(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "intruder"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	resp := patchMeta(t, ts.URL, map[string]string{"Authorization": "Bearer " + signed})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
