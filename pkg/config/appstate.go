package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/paths"
	"github.com/cyber-syntax/my-unicorn/pkg/schema"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// AppStore is the facade over per-app JSON state and the bundled catalog.
type AppStore struct {
	p *paths.Paths
}

func NewAppStore(p *paths.Paths) *AppStore {
	return &AppStore{p: p}
}

// CatalogExists reports whether a bundled catalog entry exists for name.
func (a *AppStore) CatalogExists(name string) bool {
	_, err := os.Stat(a.p.CatalogEntryPath(name))
	return err == nil
}

// LoadCatalogEntry reads and validates one bundled catalog file.
func (a *AppStore) LoadCatalogEntry(name string) (*types.CatalogEntry, error) {
	data, err := os.ReadFile(a.p.CatalogEntryPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.KindCatalogMissing, name, "catalog entry not found"+a.suggestCatalogName(name))
		}
		return nil, apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}
	var entry types.CatalogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, apperrors.Wrap(apperrors.KindParse, name, err)
	}
	if err := schema.ValidateCatalogEntry(name, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// suggestCatalogName returns a ", did you mean X?" hint for a typo'd
// catalog name, or "" when nothing in the bundled catalog is close
// enough (edit distance > 3, or the catalog listing itself fails) to be
// worth suggesting.
func (a *AppStore) suggestCatalogName(name string) string {
	names, err := a.ListCatalog()
	if err != nil || len(names) == 0 {
		return ""
	}
	best, bestDist := "", -1
	for _, candidate := range names {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist == -1 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 || bestDist > 3 {
		return ""
	}
	return ", did you mean \"" + best + "\"?"
}

// ListCatalog returns every bundled catalog app name.
func (a *AppStore) ListCatalog() ([]string, error) {
	entries, err := os.ReadDir(a.p.CatalogDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadAppRaw reads and validates one app's state file as-is, without
// merging in catalog data.
func (a *AppStore) LoadAppRaw(name string) (*types.AppState, error) {
	path := a.p.AppStatePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.KindParse, name, err)
	}
	if schema.IsV1(raw) {
		return nil, apperrors.New(apperrors.KindConfig, name, "app state is v1 format; run `my-unicorn migrate`")
	}

	var state types.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, apperrors.Wrap(apperrors.KindParse, name, err)
	}
	if err := schema.ValidateAppState(name, &state, a.CatalogExists); err != nil {
		return nil, err
	}
	return &state, nil
}

// LoadAppEffective loads raw state and, for catalog-sourced apps, merges
// catalog ← state ← overrides (overrides wins) as types.EffectiveConfig.
// For URL apps it merges state ← overrides.
func (a *AppStore) LoadAppEffective(name string) (types.EffectiveConfig, *types.AppState, error) {
	state, err := a.LoadAppRaw(name)
	if err != nil {
		return nil, nil, err
	}

	stateLayer := stateToMap(state)

	if state.Source == types.SourceCatalog {
		entry, err := a.LoadCatalogEntry(state.CatalogRef)
		if err != nil {
			return nil, nil, err
		}
		catalogLayer := catalogToMap(entry)
		merged := DeepMerge(catalogLayer, stateLayer)
		merged = DeepMerge(merged, state.Overrides)
		return merged, state, nil
	}

	merged := DeepMerge(stateLayer, state.Overrides)
	return merged, state, nil
}

// SaveApp validates and atomically writes an app's state file.
func (a *AppStore) SaveApp(name string, state *types.AppState) error {
	if err := schema.ValidateAppState(name, state, a.CatalogExists); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindParse, name, err)
	}
	return atomicWrite(a.p.AppStatePath(name), data)
}

// DeleteApp removes only the state JSON file; other artifacts (icons,
// desktop entries, installed AppImage, backups) are handled by the
// remove command directly.
func (a *AppStore) DeleteApp(name string) error {
	err := os.Remove(a.p.AppStatePath(name))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.KindFilesystem, name, err)
	}
	return nil
}

// ListInstalled returns every app with a state file on disk.
func (a *AppStore) ListInstalled() ([]string, error) {
	entries, err := os.ReadDir(a.p.AppsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func atomicWrite(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	return nil
}

func stateToMap(s *types.AppState) map[string]interface{} {
	data, _ := json.Marshal(s.State)
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return map[string]interface{}{"state": m}
}

func catalogToMap(c *types.CatalogEntry) map[string]interface{} {
	data, _ := json.Marshal(c)
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}
