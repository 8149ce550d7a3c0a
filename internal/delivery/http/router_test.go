package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "linkboard/internal/delivery/http"
)

func TestNewRouter_HealthChecks_BypassRateLimit(t *testing.T) {
	f := newFixture(t, fixtureConfig{rateLimit: 1})

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/unknown1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/unknown2", nil).Code, "business route should be rate limited")

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code, "%s should bypass the rate limiter", path)

		var resp httphandler.HealthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
	}
}

func TestNewRouter_APIRoutesAreRateLimited(t *testing.T) {
	f := newFixture(t, fixtureConfig{rateLimit: 1})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/stats", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/api/links", nil).Code)
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	rr := f.do(http.MethodPut, "/api/links/abc123", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
