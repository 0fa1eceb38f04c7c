// Package types defines the on-disk and in-memory data model shared
// across my-unicorn: the global config, per-app state, the bundled
// catalog, the release cache, backup metadata, and rate-limit tracking.
package types

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the current AppState/CatalogEntry format version.
const SchemaVersion = "2.0.0"

// Source identifies where an installed app's definition came from.
type Source string

const (
	SourceCatalog Source = "catalog"
	SourceURL     Source = "url"
)

// VerificationMethod selects how an asset's integrity is checked.
type VerificationMethod string

const (
	VerifyDigest       VerificationMethod = "digest"
	VerifyChecksumFile VerificationMethod = "checksum_file"
	VerifySkip         VerificationMethod = "skip"
)

// IconMethod selects how an app's icon is obtained.
type IconMethod string

const (
	IconExtraction IconMethod = "extraction"
	IconDownload   IconMethod = "download"
	IconNone       IconMethod = "none"
)

// MethodStatus is the outcome of a single verification method attempt.
type MethodStatus string

const (
	StatusPassed  MethodStatus = "passed"
	StatusFailed  MethodStatus = "failed"
	StatusSkipped MethodStatus = "skipped"
)

// VerificationMethodResult records one verification attempt.
type VerificationMethodResult struct {
	Type      VerificationMethod `json:"type"`
	Status    MethodStatus       `json:"status"`
	Algorithm string             `json:"algorithm,omitempty"`
	Expected  string             `json:"expected,omitempty"`
	Computed  string             `json:"computed,omitempty"`
	Source    string             `json:"source,omitempty"`
}

// VerificationRecord is the nested verification block of an AppState.
type VerificationRecord struct {
	Passed  bool                       `json:"passed"`
	Methods []VerificationMethodResult `json:"methods"`
}

// IconState records the outcome of icon acquisition for an installed app.
type IconState struct {
	Installed bool       `json:"installed"`
	Method    IconMethod `json:"method"`
	Path      string     `json:"path,omitempty"`
}

// InstallState is the nested "state" block of an AppState.
type InstallState struct {
	Version       string             `json:"version"`
	InstalledDate time.Time          `json:"installed_date"`
	InstalledPath string             `json:"installed_path"`
	Verification  VerificationRecord `json:"verification"`
	Icon          IconState          `json:"icon"`
}

// AppState is the per-installed-app persisted record (spec 3, hybrid v2
// format). For catalog apps, Overrides holds only user-specified partial
// config; for URL apps it holds the app's full configuration block.
type AppState struct {
	ConfigVersion string                 `json:"config_version"`
	Source        Source                 `json:"source"`
	CatalogRef    string                 `json:"catalog_ref,omitempty"`
	State         InstallState           `json:"state"`
	Overrides     map[string]interface{} `json:"overrides,omitempty"`
}

// GitHubSource describes where a catalog app's releases come from.
type GitHubSource struct {
	Type       string `json:"type"` // always "github"
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Prerelease bool   `json:"prerelease"`
}

// AppImageNaming describes how to recognize and rename the chosen asset.
type AppImageNaming struct {
	Template      string   `json:"template,omitempty"`
	TargetName    string   `json:"target_name"`
	Architectures []string `json:"architectures,omitempty"`
}

// ChecksumFileSpec names an expected checksum sidecar file.
type ChecksumFileSpec struct {
	Filename string `json:"filename"`
	HashType string `json:"hash_type"`
}

// VerificationSpec is the catalog's pinned verification policy.
type VerificationSpec struct {
	Method        VerificationMethod `json:"method"`
	ChecksumFiles []ChecksumFileSpec `json:"checksum_files,omitempty"`
}

// IconSpec is the catalog's icon-acquisition policy.
type IconSpec struct {
	Method   IconMethod `json:"method"`
	Filename string     `json:"filename,omitempty"`
	URL      string     `json:"url,omitempty"`
}

// Metadata is descriptive, user-facing information about a catalog app.
type Metadata struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// CatalogAppImage holds the asset-naming policy of a catalog entry.
type CatalogAppImage struct {
	Naming AppImageNaming `json:"naming"`
}

// CatalogEntry is a bundled, read-only, pre-configured app descriptor.
type CatalogEntry struct {
	ConfigVersion string           `json:"config_version"`
	Metadata      Metadata         `json:"metadata"`
	Source        GitHubSource     `json:"source"`
	AppImage      CatalogAppImage  `json:"appimage"`
	Verification  VerificationSpec `json:"verification"`
	Icon          IconSpec         `json:"icon"`
}

// ReleaseAsset mirrors one GitHub release asset, with its integrity digest.
type ReleaseAsset struct {
	Name               string `json:"name"`
	Digest             string `json:"digest,omitempty"` // "sha256:<hex>"
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type,omitempty"`
}

// ReleaseData is the filtered, persisted subset of a GitHub release.
type ReleaseData struct {
	Owner           string         `json:"owner"`
	Repo            string         `json:"repo"`
	Version         string         `json:"version"`
	Prerelease      bool           `json:"prerelease"`
	Assets          []ReleaseAsset `json:"assets"`
	OriginalTagName string         `json:"original_tag_name"`
}

// CachedRelease is the on-disk TTL-bounded cache entry for one repo.
type CachedRelease struct {
	CachedAt    time.Time   `json:"cached_at"`
	TTLHours    int         `json:"ttl_hours"`
	ReleaseData ReleaseData `json:"release_data"`
}

// Freshness classifies a cache lookup result.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"
	FreshnessStale   Freshness = "stale"
	FreshnessMissing Freshness = "missing"
)

// Expired reports whether the cache entry has outlived its TTL as of now.
func (c *CachedRelease) Expired(now time.Time) bool {
	return now.Sub(c.CachedAt) >= time.Duration(c.TTLHours)*time.Hour
}

// BackupEntry records one retained backup of an app's AppImage.
type BackupEntry struct {
	Created  time.Time `json:"created"`
	Filename string    `json:"filename"`
	SHA256   string    `json:"sha256"`
	Size     int64     `json:"size"`
}

// BackupMetadata is the per-app backup ledger (spec 3, 4.11).
type BackupMetadata struct {
	Versions map[string]BackupEntry `json:"versions"`
}

// RateLimitState tracks the most recently observed GitHub API quota.
type RateLimitState struct {
	Remaining   int       `json:"remaining"`
	Limit       int       `json:"limit"`
	ResetAt     time.Time `json:"reset_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NetworkConfig holds the [network] INI section.
type NetworkConfig struct {
	RetryAttempts  int `ini:"retry_attempts"`
	TimeoutSeconds int `ini:"timeout_seconds"`
}

// DirectoryConfig holds the [directory] INI section. Each field is an
// expanded absolute path.
type DirectoryConfig struct {
	Storage  string `ini:"storage"`
	Backup   string `ini:"backup"`
	Icon     string `ini:"icon"`
	Settings string `ini:"settings"`
	Logs     string `ini:"logs"`
	Cache    string `ini:"cache"`
	Tmp      string `ini:"tmp"`
}

// GlobalConfig is the single process-lifetime configuration instance,
// persisted as INI with three sections (spec 3, 6).
type GlobalConfig struct {
	ConfigVersion          string `ini:"-"`
	MaxConcurrentDownloads int    `ini:"max_concurrent_downloads"`
	MaxBackup              int    `ini:"max_backup"`
	LogLevel               string `ini:"log_level"`
	ConsoleLogLevel        string `ini:"console_log_level"`

	Network   NetworkConfig   `ini:"-"`
	Directory DirectoryConfig `ini:"-"`
}

// DefaultGlobalConfig returns the built-in defaults applied for any key
// missing from a loaded INI file, or for first-run creation.
func DefaultGlobalConfig() GlobalConfig {
	cfg := GlobalConfig{
		ConfigVersion:          SchemaVersion,
		MaxConcurrentDownloads: 5,
		MaxBackup:              1,
		LogLevel:               "info",
		ConsoleLogLevel:        "info",
	}
	cfg.Network.RetryAttempts = 3
	cfg.Network.TimeoutSeconds = 10
	return cfg
}

// EffectiveConfig is the result of deep-merging catalog, state, and
// overrides for one installed app (spec 4.4).
type EffectiveConfig map[string]interface{}

// ResolvedApp is an EffectiveConfig decoded into the concrete shape the
// orchestrator operates on: a CatalogEntry's fields plus the nested
// install state. Catalog-sourced apps get these fields from the
// bundled entry; URL-sourced apps get them from Overrides, since the
// invariant in spec 3 requires URL overrides to carry the full block.
type ResolvedApp struct {
	ConfigVersion string           `json:"config_version"`
	Metadata      Metadata         `json:"metadata"`
	Source        GitHubSource     `json:"source"`
	AppImage      CatalogAppImage  `json:"appimage"`
	Verification  VerificationSpec `json:"verification"`
	Icon          IconSpec         `json:"icon"`
	State         InstallState     `json:"state"`
}

// Decode round-trips an EffectiveConfig map through JSON into a ResolvedApp.
func (e EffectiveConfig) Decode() (ResolvedApp, error) {
	var r ResolvedApp
	data, err := json.Marshal(map[string]interface{}(e))
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, err
	}
	return r, nil
}

// ToOverrides marshals everything but State into the map persisted as a
// URL-sourced AppState's Overrides block, since spec 3 requires such
// apps to carry a complete config there (there is no catalog entry to
// fall back to during the next load_app_effective merge).
func (r ResolvedApp) ToOverrides() (map[string]interface{}, error) {
	data, err := json.Marshal(CatalogEntry{
		ConfigVersion: r.ConfigVersion,
		Metadata:      r.Metadata,
		Source:        r.Source,
		AppImage:      r.AppImage,
		Verification:  r.Verification,
		Icon:          r.Icon,
	})
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
