package release

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gh := github.NewClient(server.Client())
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return &Client{gh: gh, http: server.Client(), retries: 2, userAgent: "my-unicorn/test"}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestFetchLatestSuccess(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, &github.RepositoryRelease{TagName: github.String("v24.1.0")})
	}))

	rel, err := c.FetchLatest(context.Background(), "pbek", "QOwnNotes")
	require.NoError(t, err)
	assert.Equal(t, "v24.1.0", rel.GetTagName())
}

func TestFetchReleaseStableFallsBackToListOn404(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/nuclear/nuclear/releases/latest":
			writeJSON(w, http.StatusNotFound, &github.ErrorResponse{Message: "Not Found"})
		case r.URL.Path == "/repos/nuclear/nuclear/releases":
			writeJSON(w, http.StatusOK, []*github.RepositoryRelease{{TagName: github.String("v1.0.0-beta")}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	rel, err := c.FetchRelease(context.Background(), "nuclear", "nuclear", false)
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0-beta", rel.GetTagName())
}

func TestFetchReleasePrereleasePicksNewestByPublished(t *testing.T) {
	older := github.Timestamp{Time: mustParseTime(t, "2025-01-01T00:00:00Z")}
	newer := github.Timestamp{Time: mustParseTime(t, "2026-01-01T00:00:00Z")}

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*github.RepositoryRelease{
			{TagName: github.String("v1.0.0"), PublishedAt: &older},
			{TagName: github.String("v2.0.0"), PublishedAt: &newer},
		})
	}))

	rel, err := c.FetchRelease(context.Background(), "pbek", "QOwnNotes", true)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", rel.GetTagName())
}

func TestFetchLatestNotFoundMapsToHTTPError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, &github.ErrorResponse{Message: "Not Found"})
	}))

	_, err := c.FetchLatest(context.Background(), "nobody", "nothing")
	require.Error(t, err)
	assert.True(t, apperrors.OfKind(err, apperrors.KindHTTP))
}

func TestToReleaseData(t *testing.T) {
	rel := &github.RepositoryRelease{
		TagName:    github.String("v1.2.3"),
		Prerelease: github.Bool(false),
		Assets: []*github.ReleaseAsset{
			{Name: github.String("app.AppImage"), Digest: github.String("sha256:abc"), Size: github.Int(100), BrowserDownloadURL: github.String("https://example.com/app.AppImage")},
		},
	}

	data := ToReleaseData("pbek", "QOwnNotes", rel)
	assert.Equal(t, "1.2.3", data.Version)
	assert.Equal(t, "v1.2.3", data.OriginalTagName)
	require.Len(t, data.Assets, 1)
	assert.Equal(t, "app.AppImage", data.Assets[0].Name)
}

func TestNewestByPublishedEmpty(t *testing.T) {
	_, err := newestByPublished(nil, "pbek", "QOwnNotes")
	assert.Error(t, err)
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}
