// Package config is the facade over global, per-app, and catalog I/O
// (spec 4.4): GlobalConfig as INI with comment preservation, AppState and
// CatalogEntry as JSON, plus the deep-merge that builds an app's
// EffectiveConfig and the v1-to-v2 migrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/paths"
	"github.com/cyber-syntax/my-unicorn/pkg/schema"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
	"gopkg.in/ini.v1"
)

// GlobalStore loads and saves the INI global config.
type GlobalStore struct {
	p *paths.Paths
}

func NewGlobalStore(p *paths.Paths) *GlobalStore {
	return &GlobalStore{p: p}
}

// LoadGlobal reads settings.conf, preserving user comments (ini.v1 keeps
// comment lines attached to keys/sections across Load+SaveTo round
// trips), applying defaults for any key absent from the file. If the
// file doesn't exist, it is created from defaults. If config_version is
// older than the current schema, NeedsMigration is raised.
func (g *GlobalStore) LoadGlobal() (*types.GlobalConfig, error) {
	path := g.p.SettingsPath()
	defaults := types.DefaultGlobalConfig()
	defaults.Directory = defaultDirectoryConfig(g.p)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := g.SaveGlobal(&defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: false}, path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "", err)
	}

	out := defaults
	if err := cfg.Section(ini.DefaultSection).MapTo(&out); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "", err)
	}
	if err := cfg.Section("network").MapTo(&out.Network); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "", err)
	}
	if err := cfg.Section("directory").MapTo(&out.Directory); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "", err)
	}

	version := cfg.Section(ini.DefaultSection).Key("config_version").MustString(types.SchemaVersion)
	out.ConfigVersion = version
	if version != types.SchemaVersion {
		return &out, apperrors.Wrapf(apperrors.KindConfig, "", "config needs migration from %s to %s", version, types.SchemaVersion)
	}

	if err := schema.ValidateGlobalConfig(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveGlobal validates and atomically writes the config, loading the
// existing file first (if any) so ini.v1 retains its comments and only
// the changed values are rewritten.
func (g *GlobalStore) SaveGlobal(cfg *types.GlobalConfig) error {
	if err := schema.ValidateGlobalConfig(cfg); err != nil {
		return err
	}

	path := g.p.SettingsPath()
	var file *ini.File
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		file, err = ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: false}, path)
	} else {
		file = ini.Empty()
	}
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfig, "", err)
	}

	def := file.Section(ini.DefaultSection)
	def.Key("config_version").SetValue(types.SchemaVersion)
	def.Key("max_concurrent_downloads").SetValue(fmt.Sprint(cfg.MaxConcurrentDownloads))
	def.Key("max_backup").SetValue(fmt.Sprint(cfg.MaxBackup))
	def.Key("log_level").SetValue(cfg.LogLevel)
	def.Key("console_log_level").SetValue(cfg.ConsoleLogLevel)

	net := file.Section("network")
	net.Key("retry_attempts").SetValue(fmt.Sprint(cfg.Network.RetryAttempts))
	net.Key("timeout_seconds").SetValue(fmt.Sprint(cfg.Network.TimeoutSeconds))

	dir := file.Section("directory")
	dir.Key("storage").SetValue(cfg.Directory.Storage)
	dir.Key("backup").SetValue(cfg.Directory.Backup)
	dir.Key("icon").SetValue(cfg.Directory.Icon)
	dir.Key("settings").SetValue(cfg.Directory.Settings)
	dir.Key("logs").SetValue(cfg.Directory.Logs)
	dir.Key("cache").SetValue(cfg.Directory.Cache)
	dir.Key("tmp").SetValue(cfg.Directory.Tmp)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := file.WriteTo(tmp); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	return nil
}

func defaultDirectoryConfig(p *paths.Paths) types.DirectoryConfig {
	return types.DirectoryConfig{
		Storage:  p.StorageDir,
		Backup:   p.BackupDir,
		Icon:     p.IconDir,
		Settings: p.SettingsPath(),
		Logs:     p.LogDir,
		Cache:    p.CacheDir,
		Tmp:      p.TmpDir,
	}
}
