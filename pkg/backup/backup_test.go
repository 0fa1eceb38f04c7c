package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAppImage(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}

func TestCreateAndList(t *testing.T) {
	appDir := t.TempDir()
	appImage := filepath.Join(t.TempDir(), "app.AppImage")
	writeAppImage(t, appImage, "v1 content")

	svc := New(3)
	require.NoError(t, svc.Create(appDir, appImage, "1.0.0"))

	entries, err := svc.List(appDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].SHA256)
	assert.Equal(t, int64(len("v1 content")), entries[0].Size)
}

func TestCreatePrunesBeyondMaxBackup(t *testing.T) {
	appDir := t.TempDir()
	appImage := filepath.Join(t.TempDir(), "app.AppImage")

	svc := New(2)
	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		writeAppImage(t, appImage, "content-"+v)
		require.NoError(t, svc.Create(appDir, appImage, v))
	}

	entries, err := svc.List(appDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	meta, err := svc.loadMetadata(appDir)
	require.NoError(t, err)
	_, hasOldest := meta.Versions["1.0.0"]
	assert.False(t, hasOldest)
}

func TestNewClampsMaxBackupToOne(t *testing.T) {
	svc := New(0)
	assert.Equal(t, 1, svc.maxBackup)
}

func TestRestoreNewestWhenVersionEmpty(t *testing.T) {
	appDir := t.TempDir()
	appImage := filepath.Join(t.TempDir(), "app.AppImage")

	svc := New(3)
	writeAppImage(t, appImage, "content-1.0.0")
	require.NoError(t, svc.Create(appDir, appImage, "1.0.0"))
	writeAppImage(t, appImage, "content-2.0.0")
	require.NoError(t, svc.Create(appDir, appImage, "2.0.0"))

	dest := filepath.Join(t.TempDir(), "restored.AppImage")
	version, err := svc.Restore(appDir, dest, "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", version)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content-2.0.0", string(data))
}

func TestRestoreSpecificVersion(t *testing.T) {
	appDir := t.TempDir()
	appImage := filepath.Join(t.TempDir(), "app.AppImage")

	svc := New(3)
	writeAppImage(t, appImage, "content-1.0.0")
	require.NoError(t, svc.Create(appDir, appImage, "1.0.0"))
	writeAppImage(t, appImage, "content-2.0.0")
	require.NoError(t, svc.Create(appDir, appImage, "2.0.0"))

	dest := filepath.Join(t.TempDir(), "restored.AppImage")
	version, err := svc.Restore(appDir, dest, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content-1.0.0", string(data))
}

func TestRestoreNoBackupsRetained(t *testing.T) {
	appDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "restored.AppImage")

	svc := New(3)
	_, err := svc.Restore(appDir, dest, "")
	assert.Error(t, err)
}

func TestRestoreUnknownVersion(t *testing.T) {
	appDir := t.TempDir()
	appImage := filepath.Join(t.TempDir(), "app.AppImage")

	svc := New(3)
	writeAppImage(t, appImage, "content-1.0.0")
	require.NoError(t, svc.Create(appDir, appImage, "1.0.0"))

	dest := filepath.Join(t.TempDir(), "restored.AppImage")
	_, err := svc.Restore(appDir, dest, "9.9.9")
	assert.Error(t, err)
}
