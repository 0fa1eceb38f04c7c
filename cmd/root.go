// Package cmd implements the my-unicorn CLI surface (spec 6): install,
// update, remove, catalog, backup, cache, token, auth, config, migrate.
// Composition root wiring (paths, config, auth, release client, cache,
// downloader, backup, orchestrator) happens once in PersistentPreRun,
// following the teacher's root.go shape — cobra flags bound in init(),
// a package-level composition object built lazily on first command run.
package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/auth"
	"github.com/cyber-syntax/my-unicorn/pkg/backup"
	"github.com/cyber-syntax/my-unicorn/pkg/config"
	"github.com/cyber-syntax/my-unicorn/pkg/download"
	pkghttp "github.com/cyber-syntax/my-unicorn/pkg/http"
	"github.com/cyber-syntax/my-unicorn/pkg/lock"
	"github.com/cyber-syntax/my-unicorn/pkg/orchestrator"
	"github.com/cyber-syntax/my-unicorn/pkg/paths"
	"github.com/cyber-syntax/my-unicorn/pkg/platform"
	"github.com/cyber-syntax/my-unicorn/pkg/progress"
	"github.com/cyber-syntax/my-unicorn/pkg/release"
)

var (
	archOverride string
	catalogDir   string
	quiet        bool
	concurrency  int
	versionInfo  VersionInfo
	showVersion  bool

	appPaths    *paths.Paths
	appStore    *config.AppStore
	globalStore *config.GlobalStore
	appLock     *lock.Lock
	orch        *orchestrator.Orchestrator
	tokenStore  *auth.TokenStore
	authMgr     *auth.Manager
)

// VersionInfo carries build-time metadata injected via -ldflags.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

func SetVersion(version, commit, date string) {
	versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

var rootCmd = &cobra.Command{
	Use:   "my-unicorn",
	Short: "Install and update Linux AppImages from GitHub releases",
	Long: `my-unicorn is a package manager for Linux AppImages sourced from
GitHub releases: it downloads, verifies, and registers desktop entries
for apps pinned in a bundled catalog or given as a raw GitHub URL.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			printVersion()
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion()
			os.Exit(0)
		}
		clicky.Flags.UseFlags()
		return ensureComposition(cmd.Name())
	},
}

// writeLockCommands acquire the exclusive lock; every other
// command (catalog listing, cache stats, config show) takes the shared
// lock instead, per spec 5.
var writeLockCommands = map[string]bool{
	"install": true,
	"update":  true,
	"remove":  true,
	"migrate": true,
}

func printVersion() {
	fmt.Printf("my-unicorn version %s\n", versionInfo.Version)
	fmt.Printf("  commit: %s\n", versionInfo.Commit)
	fmt.Printf("  built: %s\n", versionInfo.Date)
	fmt.Printf("  platform: linux/%s\n", runtime.GOARCH)
}

// Execute runs the root command; its cobra.Command tree carries the
// full CLI surface. Exit codes follow spec 6's documented table.
func Execute() error {
	defer func() {
		if appLock != nil {
			_ = appLock.Release()
		}
	}()
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(apperrors.ExitCode(err))
	}
	return nil
}

func init() {
	clicky.BindAllFlags(rootCmd.PersistentFlags(), "tasks", "!format")

	rootCmd.PersistentFlags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&archOverride, "arch", runtime.GOARCH, "Target architecture override (amd64, arm64, ...)")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "Override the bundled catalog directory")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Disable interactive progress output")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Max concurrent downloads (0 = use settings.conf)")

	for _, sub := range []*cobra.Command{installCmd, updateCmd, removeCmd, catalogCmd, backupCmd, cacheCmd, tokenCmd, authCmd, configCmd, migrateCmd} {
		rootCmd.AddCommand(sub)
	}
}

// ensureComposition lazily builds the process-wide composition root and
// acquires the lock appropriate to the running subcommand's name, the
// way the teacher's PersistentPreRun initializes depsConfig once.
func ensureComposition(cmdName string) error {
	if orch != nil {
		return nil
	}

	platform.SetGlobalOverride(archOverride)

	p, err := paths.Resolve(catalogDir)
	if err != nil {
		return err
	}
	appPaths = p

	mode := lock.Shared
	if writeLockCommands[cmdName] {
		mode = lock.Exclusive
	}
	l, err := lock.Acquire(p.LockPath(), mode)
	if err != nil {
		return err
	}
	appLock = l

	// pkg/lock's logrus diagnostics are the one logging path this
	// process can safely redirect to a rotating file: logrus.SetOutput
	// is a confirmed stdlib-documented API, unlike commons/logger's
	// own sink, which no file in the example pack ever redirects.
	// commons/logger itself keeps logging to stdout/stderr, matching
	// the teacher.
	logrus.SetOutput(&lumberjack.Logger{
		Filename:   p.LogFilePath(),
		MaxSize:    10, // MiB
		MaxBackups: 3,
	})

	globalStore = config.NewGlobalStore(p)
	global, err := globalStore.LoadGlobal()
	if err != nil {
		return err
	}
	logger.Debugf("loaded settings.conf: log_level=%s max_concurrent_downloads=%d", global.LogLevel, global.MaxConcurrentDownloads)

	appStore = config.NewAppStore(p)

	tokenStore = auth.NewTokenStore()
	authMgr = auth.NewManager(tokenStore)

	userAgent := "my-unicorn/" + versionInfo.Version
	if versionInfo.Version == "" {
		userAgent = "my-unicorn/dev"
	}

	timeout := time.Duration(global.Network.TimeoutSeconds) * time.Second
	client := release.NewClient(timeout, global.Network.RetryAttempts, authMgr, userAgent)
	cache := release.NewCache(p.ReleaseDir)
	dl := download.New(pkghttp.GetHttpClient(pkghttp.WithTimeout(timeout)), p.CacheDir, global.Network.RetryAttempts)
	bk := backup.New(global.MaxBackup)

	var reporter progress.Reporter = progress.NewNoopReporter()
	if !quiet {
		reporter = progress.NewTaskReporter()
	}

	orch = &orchestrator.Orchestrator{
		Paths:      p,
		Apps:       appStore,
		Global:     *global,
		Client:     client,
		Cache:      cache,
		Downloader: dl,
		Backup:     bk,
		Reporter:   reporter,
		HostArch:   platform.HostArch(),
		UserAgent:  userAgent,
	}
	return nil
}
