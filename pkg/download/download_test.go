package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

func TestDownloadFetchesAndWritesDest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("appimage-bytes"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	d := New(server.Client(), cacheDir, 2)

	dest := filepath.Join(t.TempDir(), "app.AppImage")
	res, err := d.Download(context.Background(), server.URL+"/app.AppImage", dest, nil)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.EqualValues(t, len("appimage-bytes"), res.BytesWritten)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "appimage-bytes", string(data))
}

func TestDownloadServesSecondRequestFromCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("appimage-bytes"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	d := New(server.Client(), cacheDir, 2)
	url := server.URL + "/app.AppImage"

	dest1 := filepath.Join(t.TempDir(), "app.AppImage")
	_, err := d.Download(context.Background(), url, dest1, nil)
	require.NoError(t, err)

	dest2 := filepath.Join(t.TempDir(), "app.AppImage")
	res2, err := d.Download(context.Background(), url, dest2, nil)
	require.NoError(t, err)

	assert.True(t, res2.FromCache)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestDownloadNotFoundIsNotRetriedAndMapsToHTTPError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := New(server.Client(), t.TempDir(), 3)
	dest := filepath.Join(t.TempDir(), "app.AppImage")

	_, err := d.Download(context.Background(), server.URL+"/missing.AppImage", dest, nil)
	require.Error(t, err)
	assert.True(t, apperrors.OfKind(err, apperrors.KindHTTP))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestDownloadRateLimitedMapsToKindRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := New(server.Client(), t.TempDir(), 0)
	dest := filepath.Join(t.TempDir(), "app.AppImage")

	_, err := d.Download(context.Background(), server.URL+"/app.AppImage", dest, nil)
	require.Error(t, err)
	assert.True(t, apperrors.OfKind(err, apperrors.KindRateLimited))
}

func TestClassifyDownloadError(t *testing.T) {
	retryable, _, code := classifyDownloadError(&downloadError{statusCode: http.StatusInternalServerError})
	assert.True(t, retryable)
	assert.Equal(t, http.StatusInternalServerError, code)

	retryable, _, code = classifyDownloadError(&downloadError{statusCode: http.StatusNotFound})
	assert.False(t, retryable)
	assert.Equal(t, http.StatusNotFound, code)

	retryable, _, _ = classifyDownloadError(&downloadError{statusCode: http.StatusTooManyRequests})
	assert.True(t, retryable)
}
