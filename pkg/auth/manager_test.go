package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHeadersSetsAcceptAndUserAgent(t *testing.T) {
	m := NewManager(NewTokenStore())
	req, err := http.NewRequest(http.MethodGet, "https://api.github.com/repos/pbek/QOwnNotes/releases", nil)
	require.NoError(t, err)

	m.ApplyHeaders(req, "my-unicorn/test")

	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
	assert.Equal(t, "my-unicorn/test", req.Header.Get("User-Agent"))
}

func TestObserveResponseParsesRateLimitHeaders(t *testing.T) {
	m := NewManager(NewTokenStore())
	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "42")
	headers.Set("X-RateLimit-Limit", "60")
	headers.Set("X-RateLimit-Reset", "1700000000")

	state := m.ObserveResponse(headers)
	assert.Equal(t, 42, state.Remaining)
	assert.Equal(t, 60, state.Limit)
	assert.False(t, state.ResetAt.IsZero())
	assert.Equal(t, state, m.State())
}

func TestObserveResponseIgnoresMissingHeaders(t *testing.T) {
	m := NewManager(NewTokenStore())
	m.ObserveResponse(http.Header{"X-RateLimit-Remaining": []string{"10"}})
	state := m.ObserveResponse(http.Header{})

	// Absent headers on the second call must not reset previously observed values.
	assert.Equal(t, 10, state.Remaining)
}

func TestObserveResponseFromRecordedServerHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "5")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	m := NewManager(NewTokenStore())
	state := m.ObserveResponse(resp.Header)
	assert.Equal(t, 5, state.Remaining)
}
