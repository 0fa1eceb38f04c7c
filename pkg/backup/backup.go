// Package backup implements the pre-update backup service described in
// spec 4.11: copy the installed AppImage aside before an update
// overwrites it, keep the metadata.json ledger pruned to the
// configured retention count, and restore a prior version on demand.
// Nothing in the teacher repo keeps a retained-version history (it
// replaces an installed binary in place), so the retention and restore
// logic here is new; the atomic-write shape is carried from this
// system's own pkg/config atomicWrite idiom for consistency.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/release"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// Service manages one app's retained backups under paths.BackupAppDir(app).
type Service struct {
	maxBackup int
}

func New(maxBackup int) *Service {
	if maxBackup < 1 {
		maxBackup = 1
	}
	return &Service{maxBackup: maxBackup}
}

func metadataPath(appDir string) string {
	return filepath.Join(appDir, "metadata.json")
}

func (s *Service) loadMetadata(appDir string) (types.BackupMetadata, error) {
	meta := types.BackupMetadata{Versions: map[string]types.BackupEntry{}}
	data, err := os.ReadFile(metadataPath(appDir))
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return meta, apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, apperrors.Wrap(apperrors.KindParse, "", err)
	}
	if meta.Versions == nil {
		meta.Versions = map[string]types.BackupEntry{}
	}
	return meta, nil
}

func (s *Service) saveMetadata(appDir string, meta types.BackupMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindParse, "", err)
	}
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	tmp, err := os.CreateTemp(appDir, ".metadata-*.tmp")
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
	if err := os.Rename(tmp.Name(), metadataPath(appDir)); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	return nil
}

// Create copies currentAppImagePath aside into appDir under a
// version-qualified filename, records it in metadata.json, and prunes
// retained versions beyond maxBackup (oldest-by-version first).
func (s *Service) Create(appDir, currentAppImagePath, version string) error {
	meta, err := s.loadMetadata(appDir)
	if err != nil {
		return err
	}

	filename := filepath.Base(currentAppImagePath) + "." + version + ".bak"
	dest := filepath.Join(appDir, filename)
	size, sum, err := copyWithHash(currentAppImagePath, dest)
	if err != nil {
		return err
	}

	meta.Versions[version] = types.BackupEntry{
		Created:  time.Now(),
		Filename: filename,
		SHA256:   sum,
		Size:     size,
	}

	s.prune(appDir, &meta)

	return s.saveMetadata(appDir, meta)
}

// prune removes the oldest-by-version entries beyond maxBackup, newest
// first per release.SortDescending (the same semver-with-lexicographic
// fallback comparator the orchestrator uses to decide update eligibility).
func (s *Service) prune(appDir string, meta *types.BackupMetadata) {
	versions := make([]string, 0, len(meta.Versions))
	for v := range meta.Versions {
		versions = append(versions, v)
	}
	release.SortDescending(versions)

	for _, v := range versions[min(len(versions), s.maxBackup):] {
		entry := meta.Versions[v]
		os.Remove(filepath.Join(appDir, entry.Filename))
		delete(meta.Versions, v)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Restore copies the retained backup for version back over
// destAppImagePath. If version is "", the newest retained version is used.
func (s *Service) Restore(appDir, destAppImagePath, version string) (string, error) {
	meta, err := s.loadMetadata(appDir)
	if err != nil {
		return "", err
	}
	if len(meta.Versions) == 0 {
		return "", apperrors.New(apperrors.KindFilesystem, "", "no backups retained")
	}

	if version == "" {
		versions := make([]string, 0, len(meta.Versions))
		for v := range meta.Versions {
			versions = append(versions, v)
		}
		release.SortDescending(versions)
		version = versions[0]
	}

	entry, ok := meta.Versions[version]
	if !ok {
		return "", apperrors.New(apperrors.KindFilesystem, "", "no backup retained for version "+version)
	}

	src := filepath.Join(appDir, entry.Filename)
	if _, _, err := copyWithHash(src, destAppImagePath); err != nil {
		return "", err
	}
	if err := os.Chmod(destAppImagePath, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	return version, nil
}

// List returns the retained versions, newest first.
func (s *Service) List(appDir string) ([]types.BackupEntry, error) {
	meta, err := s.loadMetadata(appDir)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(meta.Versions))
	for v := range meta.Versions {
		versions = append(versions, v)
	}
	release.SortDescending(versions)

	entries := make([]types.BackupEntry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, meta.Versions[v])
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Created.After(entries[j].Created) })
	return entries, nil
}

func copyWithHash(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return 0, "", apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
