// Package paths is the sole source of truth for every directory
// my-unicorn reads or writes. It expands XDG environment variables and
// ~, resolves everything to absolute paths, and creates directories
// idempotently on first use.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

// Paths holds every resolved, absolute directory the rest of the system
// needs. It is built once by Resolve and passed down (or embedded in the
// config store) rather than recomputed.
type Paths struct {
	ConfigDir  string // ${XDG_CONFIG_HOME}/my-unicorn
	AppsDir    string // ${ConfigDir}/apps
	CatalogDir string // bundled, read-only: <install_prefix>/catalog
	CacheDir   string // ${XDG_CACHE_HOME}/my-unicorn
	ReleaseDir string // ${CacheDir}/releases
	LogDir     string // ${ConfigDir}/logs
	StorageDir string // where installed AppImages live
	BackupDir  string // where versioned backups live
	IconDir    string // where extracted/downloaded icons live
	DataDir    string // ${XDG_DATA_HOME}
	AppsDesktopDir string // ${DataDir}/applications
	TmpDir     string // scratch space for in-flight downloads
}

// catalogDirEnv lets tests and packagers point at a catalog directory
// without relying on the install prefix heuristic below.
const catalogDirEnv = "MY_UNICORN_CATALOG_DIR"

func expand(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

func xdg(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return expand(v)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/root"
	}
	return filepath.Join(home, fallback)
}

// Resolve computes every directory my-unicorn needs, honoring
// XDG_CONFIG_HOME, XDG_DATA_HOME, and XDG_CACHE_HOME, and creates them
// if they do not yet exist. catalogDirOverride, when non-empty, takes
// priority over environment/executable-relative discovery (used by
// --catalog-dir and tests).
func Resolve(catalogDirOverride string) (*Paths, error) {
	configHome := xdg("XDG_CONFIG_HOME", ".config")
	dataHome := xdg("XDG_DATA_HOME", ".local/share")
	cacheHome := xdg("XDG_CACHE_HOME", ".cache")

	configDir := filepath.Join(configHome, "my-unicorn")
	p := &Paths{
		ConfigDir:      configDir,
		AppsDir:        filepath.Join(configDir, "apps"),
		CacheDir:       filepath.Join(cacheHome, "my-unicorn"),
		ReleaseDir:     filepath.Join(cacheHome, "my-unicorn", "releases"),
		LogDir:         filepath.Join(configDir, "logs"),
		StorageDir:     filepath.Join(configDir, "storage"),
		BackupDir:      filepath.Join(configDir, "backups"),
		IconDir:        filepath.Join(dataHome, "icons", "my-unicorn"),
		DataDir:        dataHome,
		AppsDesktopDir: filepath.Join(dataHome, "applications"),
		TmpDir:         filepath.Join(os.TempDir(), "my-unicorn"),
	}

	p.CatalogDir = resolveCatalogDir(catalogDirOverride)
	if _, err := os.Stat(p.CatalogDir); os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.KindConfig, "", "bundled catalog directory not found: "+p.CatalogDir)
	}

	for _, dir := range []string{p.ConfigDir, p.AppsDir, p.CacheDir, p.ReleaseDir, p.LogDir, p.StorageDir, p.BackupDir, p.IconDir, p.AppsDesktopDir, p.TmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.KindFilesystem, "", err)
		}
	}
	return p, nil
}

func resolveCatalogDir(override string) string {
	if override != "" {
		return expand(override)
	}
	if v := os.Getenv(catalogDirEnv); v != "" {
		return expand(v)
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "catalog")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if wd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(wd, "catalog")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "/usr/share/my-unicorn/catalog"
}

// LockPath returns the process-level advisory lock file path (spec 5).
func (p *Paths) LockPath() string {
	return filepath.Join(p.CacheDir, ".lock")
}

// SettingsPath returns the global INI config path.
func (p *Paths) SettingsPath() string {
	return filepath.Join(p.ConfigDir, "settings.conf")
}

// AppStatePath returns the per-app JSON state file path.
func (p *Paths) AppStatePath(app string) string {
	return filepath.Join(p.AppsDir, app+".json")
}

// CatalogEntryPath returns the bundled catalog file path for an app.
func (p *Paths) CatalogEntryPath(app string) string {
	return filepath.Join(p.CatalogDir, app+".json")
}

// ReleaseCachePath returns the cached-release JSON path for an owner/repo.
func (p *Paths) ReleaseCachePath(owner, repo string) string {
	return filepath.Join(p.ReleaseDir, owner+"_"+repo+".json")
}

// BackupAppDir returns the per-app backup directory.
func (p *Paths) BackupAppDir(app string) string {
	return filepath.Join(p.BackupDir, app)
}

// LogFilePath returns the rotated log file path.
func (p *Paths) LogFilePath() string {
	return filepath.Join(p.LogDir, "my-unicorn.log")
}
