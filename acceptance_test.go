package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agrox-fyp/agrox-api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves the full router over a real listener
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := testConfig()
	setupIntegrationDB(t)

	server := httptest.NewServer(setupRouter(cfg, middleware.NewRateLimiter(cfg.AuthRatePerMin)))
	t.Cleanup(server.Close)
	return server
}

// TestAPIHealthEndpointAcceptance is an end-to-end acceptance test over HTTP
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "AgroX API is running", response["message"])
}

func TestUnauthorizedResponseAcceptance(t *testing.T) {
	server := startServer(t)

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcjpwYXNz"} {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/chat/rooms", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t,
			`{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid or missing authentication token"}}`,
			string(body))
	}
}

func TestCORSPreflightAcceptance(t *testing.T) {
	server := startServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/chat/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.agrox.pk")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost))
}

func TestUnknownRouteAcceptance(t *testing.T) {
	server := startServer(t)

	resp, err := http.Post(server.URL+"/api/v1/health", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "POST /health should not be routed")
}
