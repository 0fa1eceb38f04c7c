package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

func writeTempAppImage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.AppImage")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestVerifyDigestPasses(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage", Digest: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}

	rec, err := Verify(path, "app.AppImage", asset, types.VerifyDigest, "", true, false)
	require.NoError(t, err)
	assert.True(t, rec.Passed)
	assert.Equal(t, types.StatusPassed, rec.Methods[0].Status)
}

func TestVerifyDigestFailsStrict(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage", Digest: "sha256:0000000000000000000000000000000000000000000000000000000000000000"}

	_, err := Verify(path, "app.AppImage", asset, types.VerifyDigest, "", true, false)
	assert.Error(t, err)
}

func TestVerifyDigestFailsNonStrictDoesNotError(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage", Digest: "sha256:0000000000000000000000000000000000000000000000000000000000000000"}

	rec, err := Verify(path, "app.AppImage", asset, types.VerifyDigest, "", false, false)
	require.NoError(t, err)
	assert.False(t, rec.Passed)
}

func TestVerifyNoVerifyForcesSkip(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage", Digest: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}

	rec, err := Verify(path, "app.AppImage", asset, types.VerifyDigest, "", true, true)
	require.NoError(t, err)
	assert.False(t, rec.Passed)
	assert.Equal(t, types.VerifySkip, rec.Methods[0].Type)
}

func TestVerifyChecksumFileMethod(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage"}
	checksumFile := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824  app.AppImage\n"

	rec, err := Verify(path, "app.AppImage", asset, types.VerifyChecksumFile, checksumFile, true, false)
	require.NoError(t, err)
	assert.True(t, rec.Passed)
}

func TestVerifyChecksumFileMismatchStrict(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage"}
	checksumFile := "0000000000000000000000000000000000000000000000000000000000000000  app.AppImage\n"

	_, err := Verify(path, "app.AppImage", asset, types.VerifyChecksumFile, checksumFile, true, false)
	assert.Error(t, err)
}

func TestVerifyNoDataAvailableTreatedAsSkip(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage"}

	rec, err := Verify(path, "app.AppImage", asset, "", "", true, false)
	require.NoError(t, err)
	assert.False(t, rec.Passed)
	assert.Equal(t, types.VerifySkip, rec.Methods[0].Type)
}

func TestVerifyPinnedDigestMissingDigestStrict(t *testing.T) {
	path := writeTempAppImage(t, "hello")
	asset := types.ReleaseAsset{Name: "app.AppImage"}

	_, err := Verify(path, "app.AppImage", asset, types.VerifyDigest, "", true, false)
	assert.Error(t, err)
}
