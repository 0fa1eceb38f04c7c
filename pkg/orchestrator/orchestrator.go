// Package orchestrator implements the install/update state machine
// described in spec 4.9: Resolving -> FetchingMetadata -> SelectingAsset
// -> Downloading -> Verifying -> PostProcessing -> Committing -> Done,
// with per-target failure isolation (one target's error never cancels
// its peers) and a bounded worker pool across concurrent targets. This
// is new code — the teacher installs a single pinned tool version per
// invocation and has no equivalent cross-target scheduling — but the
// per-target sequential pipeline and the worker-pool bound follow the
// shape of pkg/manager.Registry's iteration helpers, and every stage it
// calls into (release, asset, download, checksum, backup, postprocess)
// is itself grounded per DESIGN.md.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/asset"
	"github.com/cyber-syntax/my-unicorn/pkg/backup"
	"github.com/cyber-syntax/my-unicorn/pkg/checksum"
	"github.com/cyber-syntax/my-unicorn/pkg/config"
	"github.com/cyber-syntax/my-unicorn/pkg/download"
	"github.com/cyber-syntax/my-unicorn/pkg/paths"
	"github.com/cyber-syntax/my-unicorn/pkg/postprocess"
	"github.com/cyber-syntax/my-unicorn/pkg/progress"
	"github.com/cyber-syntax/my-unicorn/pkg/release"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
	"github.com/cyber-syntax/my-unicorn/pkg/utils"
)

// Stage names the state machine position at which a target failed.
type Stage string

const (
	StageResolving        Stage = "resolving"
	StageFetchingMetadata Stage = "fetching_metadata"
	StageSelectingAsset   Stage = "selecting_asset"
	StageDownloading      Stage = "downloading"
	StageVerifying        Stage = "verifying"
	StagePostProcessing   Stage = "post_processing"
	StageCommitting       Stage = "committing"
)

// Status is the terminal outcome of one target.
type Status string

const (
	StatusInstalled        Status = "installed"
	StatusAlreadyInstalled Status = "already_installed"
	StatusUpdated          Status = "updated"
	StatusUpToDate         Status = "up_to_date"
	StatusRemoved          Status = "removed"
	StatusFailed           Status = "failed"
)

// Outcome reports one target's result for the aggregate summary.
type Outcome struct {
	Target  string
	Status  Status
	Stage   Stage
	Err     error
	Version string
}

// InstallOptions controls a RunInstall invocation.
type InstallOptions struct {
	NoIcon      bool
	NoVerify    bool
	NoDesktop   bool
	Concurrency int
}

// UpdateOptions controls a RunUpdate invocation.
type UpdateOptions struct {
	CheckOnly    bool
	RefreshCache bool
	Concurrency  int
}

// Orchestrator wires every subsystem a target's pipeline needs. One
// instance is built per command invocation (the composition-root
// pattern spec 9 calls for) and shared read-only across targets; the
// only mutable shared state is the release client's embedded auth
// manager (rate-limit observation) and the release cache (file-per-repo,
// so writes from distinct targets never collide).
type Orchestrator struct {
	Paths      *paths.Paths
	Apps       *config.AppStore
	Global     types.GlobalConfig
	Client     *release.Client
	Cache      *release.Cache
	Downloader *download.Downloader
	Backup     *backup.Service
	Reporter   progress.Reporter
	HostArch   string
	UserAgent  string
}

func (o *Orchestrator) concurrency(requested int) int {
	if requested > 0 {
		return requested
	}
	if o.Global.MaxConcurrentDownloads > 0 {
		return o.Global.MaxConcurrentDownloads
	}
	return 1
}

// runPool executes fn for each item in items over a bounded worker pool,
// collecting results in input order. One item's panic-free error never
// stops the others (spec 4.9's "one target's failure never cancels others").
func runPool(items []string, size int, fn func(string) Outcome) []Outcome {
	results := make([]Outcome, len(items))
	sem := make(chan struct{}, size)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}
	wg.Wait()
	return results
}

// RunInstall executes the install pipeline over every target concurrently.
func (o *Orchestrator) RunInstall(ctx context.Context, targets []string, opts InstallOptions) []Outcome {
	return runPool(targets, o.concurrency(opts.Concurrency), func(t string) Outcome {
		return o.installOne(ctx, t, opts)
	})
}

func (o *Orchestrator) installOne(ctx context.Context, targetStr string, opts InstallOptions) Outcome {
	out := Outcome{Target: targetStr}

	target, err := ParseTarget(targetStr)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageResolving, err
		return out
	}

	appName := target.Name
	if target.Kind == TargetURL {
		appName = strings.ToLower(target.Repo)
	}

	if o.Apps.CatalogExists(appName) || existsAppState(o.Paths, appName) {
		if _, _, err := o.Apps.LoadAppEffective(appName); err == nil {
			out.Status = StatusAlreadyInstalled
			return out
		}
	}

	var owner, repo string
	var prerelease bool
	var resolved types.ResolvedApp
	if target.Kind == TargetCatalog {
		entry, err := o.Apps.LoadCatalogEntry(target.Name)
		if err != nil {
			out.Status, out.Stage, out.Err = StatusFailed, StageResolving, err
			return out
		}
		owner, repo, prerelease = entry.Source.Owner, entry.Source.Repo, entry.Source.Prerelease
		resolved = types.ResolvedApp{
			ConfigVersion: entry.ConfigVersion,
			Metadata:      entry.Metadata,
			Source:        entry.Source,
			AppImage:      entry.AppImage,
			Verification:  entry.Verification,
			Icon:          entry.Icon,
		}
	} else {
		owner, repo, prerelease = target.Owner, target.Repo, false
		resolved = syntheticURLConfig(target.Owner, target.Repo)
	}

	rel, err := o.fetchRelease(ctx, owner, repo, prerelease, false)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageFetchingMetadata, err
		return out
	}
	out.Version = rel.Version

	filtered := asset.Filter(rel.Assets, o.HostArch, prerelease)
	appImageAsset, err := asset.SelectAppImageTemplate(filtered, o.HostArch, resolved.AppImage.Naming.Architectures, resolved.AppImage.Naming.Template)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageSelectingAsset, err
		return out
	}
	checksumAsset, hasChecksumAsset := asset.SelectChecksumFile(filtered, appImageAsset.Name, resolved.Verification.ChecksumFiles)

	targetName := resolved.AppImage.Naming.TargetName
	if targetName == "" {
		targetName = appName
	}

	downloadedPath, checksumContent, err := o.downloadAssets(ctx, appImageAsset, checksumAsset, hasChecksumAsset, targetName)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageDownloading, err
		return out
	}

	verification, err := checksum.Verify(downloadedPath, appImageAsset.Name, appImageAsset, resolved.Verification.Method, checksumContent, true, opts.NoVerify)
	if err != nil {
		os.Remove(downloadedPath)
		out.Status, out.Stage, out.Err = StatusFailed, StageVerifying, err
		return out
	}

	postResult, err := o.postProcess(downloadedPath, targetName, resolved.Icon, opts)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StagePostProcessing, err
		return out
	}
	for _, w := range postResult.Warnings {
		logger.Warnf("%s: %s step failed: %v", targetName, w.Step, w.Err)
	}

	state := &types.AppState{
		ConfigVersion: types.SchemaVersion,
		Source:        target.sourceKind(),
		State: types.InstallState{
			Version:       rel.Version,
			InstalledDate: time.Now(),
			InstalledPath: postResult.InstalledPath,
			Verification:  verification,
			Icon:          postResult.Icon,
		},
	}
	if target.Kind == TargetCatalog {
		state.CatalogRef = target.Name
	} else {
		overrides, merr := resolved.ToOverrides()
		if merr != nil {
			out.Status, out.Stage, out.Err = StatusFailed, StageCommitting, merr
			return out
		}
		state.Overrides = overrides
	}

	if err := o.Apps.SaveApp(appName, state); err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageCommitting, err
		return out
	}

	logger.Infof("%s: installed %s at %s", targetName, rel.Version, utils.LogPath(postResult.InstalledPath))
	out.Status = StatusInstalled
	return out
}

// RunUpdate executes the update pipeline over every target (or every
// installed app, if targets is empty) concurrently.
func (o *Orchestrator) RunUpdate(ctx context.Context, targets []string, opts UpdateOptions) []Outcome {
	if len(targets) == 0 {
		all, err := o.Apps.ListInstalled()
		if err != nil {
			return []Outcome{{Status: StatusFailed, Err: err}}
		}
		targets = all
	}
	return runPool(targets, o.concurrency(opts.Concurrency), func(t string) Outcome {
		return o.updateOne(ctx, t, opts)
	})
}

func (o *Orchestrator) updateOne(ctx context.Context, appName string, opts UpdateOptions) Outcome {
	out := Outcome{Target: appName}

	effective, state, err := o.Apps.LoadAppEffective(appName)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageResolving, err
		return out
	}
	resolved, err := effective.Decode()
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageResolving, err
		return out
	}

	owner, repo, prerelease := resolved.Source.Owner, resolved.Source.Repo, resolved.Source.Prerelease

	rel, err := o.fetchRelease(ctx, owner, repo, prerelease, opts.RefreshCache)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageFetchingMetadata, err
		return out
	}
	out.Version = rel.Version

	if !release.IsNewer(rel.Version, state.State.Version) {
		out.Status = StatusUpToDate
		return out
	}
	if opts.CheckOnly {
		out.Status = StatusUpdated // reported as "update available", not applied
		return out
	}

	filtered := asset.Filter(rel.Assets, o.HostArch, prerelease)
	appImageAsset, err := asset.SelectAppImageTemplate(filtered, o.HostArch, resolved.AppImage.Naming.Architectures, resolved.AppImage.Naming.Template)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageSelectingAsset, err
		return out
	}
	checksumAsset, hasChecksumAsset := asset.SelectChecksumFile(filtered, appImageAsset.Name, resolved.Verification.ChecksumFiles)

	targetName := resolved.AppImage.Naming.TargetName
	if targetName == "" {
		targetName = appName
	}

	backupDir := o.Paths.BackupAppDir(appName)
	if err := o.Backup.Create(backupDir, state.State.InstalledPath, state.State.Version); err != nil {
		logger.Warnf("%s: failed to create pre-update backup: %v", appName, err)
	}

	downloadedPath, checksumContent, err := o.downloadAssets(ctx, appImageAsset, checksumAsset, hasChecksumAsset, targetName)
	if err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageDownloading, err
		return out
	}

	verification, err := checksum.Verify(downloadedPath, appImageAsset.Name, appImageAsset, resolved.Verification.Method, checksumContent, true, false)
	if err != nil {
		os.Remove(downloadedPath)
		if _, rerr := o.Backup.Restore(backupDir, state.State.InstalledPath, state.State.Version); rerr != nil {
			logger.Errorf("%s: verification failed and restore also failed: %v", appName, rerr)
		}
		out.Status, out.Stage, out.Err = StatusFailed, StageVerifying, err
		return out
	}

	postResult, err := o.postProcess(downloadedPath, targetName, resolved.Icon, InstallOptions{})
	if err != nil {
		if _, rerr := o.Backup.Restore(backupDir, state.State.InstalledPath, state.State.Version); rerr != nil {
			logger.Errorf("%s: post-processing failed and restore also failed: %v", appName, rerr)
		}
		out.Status, out.Stage, out.Err = StatusFailed, StagePostProcessing, err
		return out
	}

	state.State.Version = rel.Version
	state.State.InstalledDate = time.Now()
	state.State.InstalledPath = postResult.InstalledPath
	state.State.Verification = verification
	state.State.Icon = postResult.Icon

	if err := o.Apps.SaveApp(appName, state); err != nil {
		out.Status, out.Stage, out.Err = StatusFailed, StageCommitting, err
		return out
	}

	out.Status = StatusUpdated
	return out
}

// RemoveOptions controls a RunRemove invocation.
type RemoveOptions struct {
	KeepConfig bool
}

// RunRemove deletes an installed app's AppImage, icon, desktop entry,
// backups, and state file (unless KeepConfig asks to retain the state
// and catalog association for a later reinstall).
func (o *Orchestrator) RunRemove(appName string, opts RemoveOptions) Outcome {
	out := Outcome{Target: appName}

	state, err := o.Apps.LoadAppRaw(appName)
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		return out
	}

	if state.State.InstalledPath != "" {
		if err := os.Remove(state.State.InstalledPath); err != nil && !os.IsNotExist(err) {
			logger.Warnf("%s: failed to remove installed AppImage: %v", appName, err)
		}
	}
	if state.State.Icon.Path != "" {
		if err := os.Remove(state.State.Icon.Path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("%s: failed to remove icon: %v", appName, err)
		}
	}
	desktopPath := filepath.Join(o.Paths.AppsDesktopDir, appName+".desktop")
	if err := os.Remove(desktopPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf("%s: failed to remove desktop entry: %v", appName, err)
	}
	if err := os.RemoveAll(o.Paths.BackupAppDir(appName)); err != nil {
		logger.Warnf("%s: failed to remove backups: %v", appName, err)
	}

	if !opts.KeepConfig {
		if err := o.Apps.DeleteApp(appName); err != nil {
			out.Status, out.Err = StatusFailed, err
			return out
		}
	}

	out.Status = StatusRemoved
	return out
}

// fetchRelease is cache-first unless refresh is set, per spec 4.9 update
// step 3. Install never sets refresh, so it also returns a fresh cached
// entry when one exists; every fetched release is filtered and written
// back to the cache.
func (o *Orchestrator) fetchRelease(ctx context.Context, owner, repo string, prerelease, refresh bool) (types.ReleaseData, error) {
	if !refresh {
		if cached, freshness := o.Cache.Lookup(owner, repo, time.Now()); freshness == types.FreshnessFresh {
			return cached.ReleaseData, nil
		}
	}

	ghRel, err := o.Client.FetchRelease(ctx, owner, repo, prerelease)
	if err != nil {
		return types.ReleaseData{}, err
	}
	data := release.ToReleaseData(owner, repo, ghRel)
	data.Assets = asset.Filter(data.Assets, o.HostArch, prerelease)

	entry := &types.CachedRelease{CachedAt: time.Now(), TTLHours: 24, ReleaseData: data}
	if err := o.Cache.Save(owner, repo, entry); err != nil {
		logger.Warnf("%s/%s: failed to write release cache: %v", owner, repo, err)
	}
	return data, nil
}

// downloadAssets fetches the AppImage and its paired checksum sidecar
// (when present) in parallel, per spec 4.5's "AppImage and checksum
// file are fetched in parallel" requirement.
func (o *Orchestrator) downloadAssets(ctx context.Context, appImageAsset types.ReleaseAsset, checksumAsset types.ReleaseAsset, hasChecksum bool, targetName string) (string, string, error) {
	dest := filepath.Join(o.Paths.TmpDir, targetName+".AppImage")

	var appImageErr, checksumErr error
	var checksumContent string
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, appImageErr = o.runDownload(ctx, appImageAsset.BrowserDownloadURL, dest, targetName)
	}()

	if hasChecksum {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checksumDest := filepath.Join(o.Paths.TmpDir, checksumAsset.Name)
			if _, err := o.Downloader.Download(ctx, checksumAsset.BrowserDownloadURL, checksumDest, nil); err != nil {
				checksumErr = err
				return
			}
			data, err := os.ReadFile(checksumDest)
			if err != nil {
				checksumErr = err
				return
			}
			checksumContent = string(data)
		}()
	}

	wg.Wait()
	if appImageErr != nil {
		return "", "", apperrors.Wrap(apperrors.KindNetwork, targetName, appImageErr)
	}
	if checksumErr != nil {
		logger.Warnf("%s: checksum sidecar fetch failed, falling back to digest/skip: %v", targetName, checksumErr)
	}
	return dest, checksumContent, nil
}

func (o *Orchestrator) runDownload(ctx context.Context, url, dest, label string) (download.Result, error) {
	if o.Reporter == nil {
		return o.Downloader.Download(ctx, url, dest, nil)
	}
	result, err := o.Reporter.Run(label, func(t progress.Task) (interface{}, error) {
		return o.Downloader.Download(ctx, url, dest, t)
	})
	if err != nil {
		return download.Result{}, err
	}
	return result.(download.Result), nil
}

func (o *Orchestrator) postProcess(downloadedPath, targetName string, icon types.IconSpec, opts InstallOptions) (postprocess.Result, error) {
	return postprocess.Run(downloadedPath, o.Paths.StorageDir, o.Paths.IconDir, o.Paths.AppsDesktopDir, targetName, icon, opts.NoIcon, opts.NoDesktop)
}

func existsAppState(p *paths.Paths, name string) bool {
	_, err := os.Stat(p.AppStatePath(name))
	return err == nil
}

func (t Target) sourceKind() types.Source {
	if t.Kind == TargetCatalog {
		return types.SourceCatalog
	}
	return types.SourceURL
}

// syntheticURLConfig builds a ResolvedApp for a bare GitHub URL target
// with no catalog entry, per spec 4.3's invariant that a URL app's
// overrides must carry a complete config block. Verification defaults
// to digest (spec 9's documented default for URL installs, since no
// catalog author has pinned a checksum_file), icon to extraction.
func syntheticURLConfig(owner, repo string) types.ResolvedApp {
	name := strings.ToLower(repo)
	return types.ResolvedApp{
		ConfigVersion: types.SchemaVersion,
		Metadata: types.Metadata{
			Name:        name,
			DisplayName: repo,
			Description: fmt.Sprintf("%s/%s", owner, repo),
		},
		Source: types.GitHubSource{Type: "github", Owner: owner, Repo: repo, Prerelease: false},
		AppImage: types.CatalogAppImage{
			Naming: types.AppImageNaming{TargetName: name},
		},
		Verification: types.VerificationSpec{Method: types.VerifyDigest},
		Icon:         types.IconSpec{Method: types.IconExtraction},
	}
}

