package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// v1AppState is the legacy flat shape: owner/repo/appimage.version live
// at or near the top level instead of under a catalog_ref + state block.
type v1AppState struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	AppImage struct {
		Version       string `json:"version"`
		InstalledPath string `json:"installed_path"`
	} `json:"appimage"`
	InstalledDate string `json:"installed_date"`
}

// MigrationResult describes what the migrator did for one app.
type MigrationResult struct {
	App        string
	Migrated   bool
	BackupPath string
	Reason     string
}

// MigrateApp converts one v1-flat state file to v2-hybrid, backing up
// the original first. If the app name matches a bundled catalog entry,
// the migrated record is source=catalog; otherwise it is source=url with
// a best-effort overrides block built from the v1 owner/repo.
func (a *AppStore) MigrateApp(name string) (MigrationResult, error) {
	res := MigrationResult{App: name}
	path := a.p.AppStatePath(name)

	data, err := os.ReadFile(path)
	if err != nil {
		return res, apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return res, apperrors.Wrap(apperrors.KindParse, name, err)
	}
	if !IsV1Exported(raw) {
		res.Reason = "already v2"
		return res, nil
	}

	var v1 v1AppState
	if err := json.Unmarshal(data, &v1); err != nil {
		return res, apperrors.Wrap(apperrors.KindParse, name, err)
	}

	backupDir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return res, apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}
	backupPath := filepath.Join(backupDir, name+".json.backup")
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return res, apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}
	res.BackupPath = backupPath

	state := &types.AppState{
		ConfigVersion: types.SchemaVersion,
		State: types.InstallState{
			Version:       v1.AppImage.Version,
			InstalledPath: v1.AppImage.InstalledPath,
		},
	}
	if t, err := time.Parse(time.RFC3339, v1.InstalledDate); err == nil {
		state.State.InstalledDate = t
	} else {
		state.State.InstalledDate = time.Now().UTC()
	}

	if a.CatalogExists(name) {
		state.Source = types.SourceCatalog
		state.CatalogRef = name
	} else {
		state.Source = types.SourceURL
		state.Overrides = map[string]interface{}{
			"metadata": map[string]interface{}{"name": name, "display_name": name},
			"source":   map[string]interface{}{"type": "github", "owner": v1.Owner, "repo": v1.Repo},
			"appimage": map[string]interface{}{"naming": map[string]interface{}{"target_name": name}},
			"verification": map[string]interface{}{"method": string(types.VerifyDigest)},
			"icon":         map[string]interface{}{"method": string(types.IconNone)},
		}
	}

	if err := a.SaveApp(name, state); err != nil {
		return res, err
	}
	res.Migrated = true
	logger.Infof("migrated %s: v1 -> v2 (backup at %s)", name, backupPath)
	return res, nil
}

// MigrateAll migrates every app whose state file is still v1.
func (a *AppStore) MigrateAll() ([]MigrationResult, error) {
	names, err := a.ListInstalled()
	if err != nil {
		return nil, err
	}
	var results []MigrationResult
	for _, name := range names {
		res, err := a.MigrateApp(name)
		if err != nil {
			results = append(results, MigrationResult{App: name, Reason: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// IsV1Exported applies the same pre-2.0 shape check as schema.IsV1; it
// is a separate copy of that logic, not a call to it.
func IsV1Exported(raw map[string]interface{}) bool {
	if cv, ok := raw["config_version"].(string); ok && cv == types.SchemaVersion {
		return false
	}
	_, hasOwner := raw["owner"]
	_, hasRepo := raw["repo"]
	return hasOwner || hasRepo
}
