package orchestrator

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

	"github.com/cyber-syntax/my-unicorn/pkg/config"
	"github.com/cyber-syntax/my-unicorn/pkg/download"
	"github.com/cyber-syntax/my-unicorn/pkg/paths"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

func TestRunPoolPreservesInputOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	results := runPool(items, 2, func(item string) Outcome {
		return Outcome{Target: item, Status: StatusInstalled}
	})
	require.Len(t, results, 5)
	for i, item := range items {
		assert.Equal(t, item, results[i].Target)
	}
}

func TestRunPoolIsolatesFailures(t *testing.T) {
	items := []string{"good", "bad", "good2"}
	results := runPool(items, 3, func(item string) Outcome {
		if item == "bad" {
			return Outcome{Target: item, Status: StatusFailed, Err: assert.AnError}
		}
		return Outcome{Target: item, Status: StatusInstalled}
	})
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusInstalled, results[0].Status)
	assert.Equal(t, StatusInstalled, results[2].Status)
}

func TestRunPoolRespectsConcurrencyBound(t *testing.T) {
	var current, max int32
	items := make([]string, 10)
	for i := range items {
		items[i] = "x"
	}
	runPool(items, 2, func(item string) Outcome {
		n := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&max)
			if n <= old || atomic.CompareAndSwapInt32(&max, old, n) {
				break
			}
		}
		atomic.AddInt32(&current, -1)
		return Outcome{}
	})
	assert.LessOrEqual(t, int(max), 2)
}

func TestConcurrencyPrefersRequestedOverGlobal(t *testing.T) {
	o := &Orchestrator{Global: types.GlobalConfig{MaxConcurrentDownloads: 5}}
	assert.Equal(t, 3, o.concurrency(3))
}

func TestConcurrencyFallsBackToGlobal(t *testing.T) {
	o := &Orchestrator{Global: types.GlobalConfig{MaxConcurrentDownloads: 5}}
	assert.Equal(t, 5, o.concurrency(0))
}

func TestConcurrencyDefaultsToOne(t *testing.T) {
	o := &Orchestrator{}
	assert.Equal(t, 1, o.concurrency(0))
}

func TestSyntheticURLConfig(t *testing.T) {
	resolved := syntheticURLConfig("nuclear", "nuclear")
	assert.Equal(t, "nuclear", resolved.Metadata.Name)
	assert.Equal(t, types.VerifyDigest, resolved.Verification.Method)
	assert.Equal(t, types.IconExtraction, resolved.Icon.Method)
	assert.Equal(t, "nuclear", resolved.AppImage.Naming.TargetName)
}

func TestTargetSourceKind(t *testing.T) {
	assert.Equal(t, types.SourceCatalog, Target{Kind: TargetCatalog}.sourceKind())
	assert.Equal(t, types.SourceURL, Target{Kind: TargetURL}.sourceKind())
}

func TestExistsAppState(t *testing.T) {
	root := t.TempDir()
	p := &paths.Paths{AppsDir: root}
	require.NoError(t, os.WriteFile(p.AppStatePath("qownnotes"), []byte("{}"), 0o644))

	assert.True(t, existsAppState(p, "qownnotes"))
	assert.False(t, existsAppState(p, "missing"))
}

func testOrchestratorPaths(t *testing.T) *paths.Paths {
	t.Helper()
	root := t.TempDir()
	p := &paths.Paths{
		AppsDir:        filepath.Join(root, "apps"),
		CatalogDir:     filepath.Join(root, "catalog"),
		TmpDir:         filepath.Join(root, "tmp"),
		StorageDir:     filepath.Join(root, "storage"),
		IconDir:        filepath.Join(root, "icons"),
		AppsDesktopDir: filepath.Join(root, "applications"),
		BackupDir:      filepath.Join(root, "backups"),
		ReleaseDir:     filepath.Join(root, "releases"),
	}
	for _, dir := range []string{p.AppsDir, p.CatalogDir, p.TmpDir, p.StorageDir, p.IconDir, p.AppsDesktopDir, p.BackupDir, p.ReleaseDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return p
}

func TestRunRemoveDeletesInstalledArtifacts(t *testing.T) {
	p := testOrchestratorPaths(t)
	apps := config.NewAppStore(p)

	appImage := filepath.Join(p.StorageDir, "qownnotes.AppImage")
	require.NoError(t, os.WriteFile(appImage, []byte("payload"), 0o755))
	iconPath := filepath.Join(p.IconDir, "qownnotes.png")
	require.NoError(t, os.WriteFile(iconPath, []byte("icon"), 0o644))
	desktopPath := filepath.Join(p.AppsDesktopDir, "qownnotes.desktop")
	require.NoError(t, os.WriteFile(desktopPath, []byte("[Desktop Entry]"), 0o644))

	state := &types.AppState{
		ConfigVersion: types.SchemaVersion,
		Source:        types.SourceCatalog,
		CatalogRef:    "qownnotes",
		State: types.InstallState{
			Version:       "24.1.0",
			InstalledPath: appImage,
			Icon:          types.IconState{Installed: true, Path: iconPath},
		},
	}
	require.NoError(t, apps.SaveApp("qownnotes", state))

	o := &Orchestrator{Paths: p, Apps: apps}
	out := o.RunRemove("qownnotes", RemoveOptions{})

	assert.Equal(t, StatusRemoved, out.Status)
	assert.NoFileExists(t, appImage)
	assert.NoFileExists(t, iconPath)
	assert.NoFileExists(t, desktopPath)

	_, err := apps.LoadAppRaw("qownnotes")
	assert.Error(t, err)
}

func TestRunRemoveKeepConfigPreservesState(t *testing.T) {
	p := testOrchestratorPaths(t)
	apps := config.NewAppStore(p)

	state := &types.AppState{
		ConfigVersion: types.SchemaVersion,
		Source:        types.SourceCatalog,
		CatalogRef:    "qownnotes",
		State:         types.InstallState{Version: "24.1.0"},
	}
	require.NoError(t, apps.SaveApp("qownnotes", state))

	o := &Orchestrator{Paths: p, Apps: apps}
	out := o.RunRemove("qownnotes", RemoveOptions{KeepConfig: true})

	assert.Equal(t, StatusRemoved, out.Status)
	_, err := apps.LoadAppRaw("qownnotes")
	assert.NoError(t, err)
}

func TestRunRemoveMissingAppFails(t *testing.T) {
	p := testOrchestratorPaths(t)
	apps := config.NewAppStore(p)

	o := &Orchestrator{Paths: p, Apps: apps}
	out := o.RunRemove("nonexistent", RemoveOptions{})
	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
}

func TestDownloadAssetsFetchesInParallel(t *testing.T) {
	p := testOrchestratorPaths(t)

	appImageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("appimage-bytes"))
	}))
	defer appImageServer.Close()
	checksumServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("deadbeef  qownnotes.AppImage\n"))
	}))
	defer checksumServer.Close()

	o := &Orchestrator{
		Paths:      p,
		Downloader: download.New(http.DefaultClient, filepath.Join(p.TmpDir, "cache"), 1),
	}

	appImageAsset := types.ReleaseAsset{Name: "qownnotes.AppImage", BrowserDownloadURL: appImageServer.URL}
	checksumAsset := types.ReleaseAsset{Name: "qownnotes.AppImage.sha256", BrowserDownloadURL: checksumServer.URL}

	downloadedPath, content, err := o.downloadAssets(context.Background(), appImageAsset, checksumAsset, true, "qownnotes")
	require.NoError(t, err)
	assert.FileExists(t, downloadedPath)
	assert.Contains(t, content, "qownnotes.AppImage")
}

func TestDownloadAssetsWithoutChecksum(t *testing.T) {
	p := testOrchestratorPaths(t)

	appImageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("appimage-bytes"))
	}))
	defer appImageServer.Close()

	o := &Orchestrator{
		Paths:      p,
		Downloader: download.New(http.DefaultClient, filepath.Join(p.TmpDir, "cache"), 1),
	}

	appImageAsset := types.ReleaseAsset{Name: "qownnotes.AppImage", BrowserDownloadURL: appImageServer.URL}
	downloadedPath, content, err := o.downloadAssets(context.Background(), appImageAsset, types.ReleaseAsset{}, false, "qownnotes")
	require.NoError(t, err)
	assert.FileExists(t, downloadedPath)
	assert.Empty(t, content)
}
