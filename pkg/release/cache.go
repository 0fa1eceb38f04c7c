package release

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// Cache is a persistent, file-per-repo JSON cache of release metadata,
// following the teacher's atomic temp-file+rename save idiom (formerly
// pkg/cache) but keyed and TTL-checked the way spec 4.5 requires rather
// than by URL hash.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(owner, repo string) string {
	return filepath.Join(c.dir, owner+"_"+repo+".json")
}

// Lookup returns the cached entry (if any) and its freshness relative to
// now. A missing file is FreshnessMissing with a nil entry; a read or
// parse failure is also treated as missing so callers fall through to a
// fresh fetch.
func (c *Cache) Lookup(owner, repo string, now time.Time) (*types.CachedRelease, types.Freshness) {
	data, err := os.ReadFile(c.path(owner, repo))
	if err != nil {
		return nil, types.FreshnessMissing
	}
	var entry types.CachedRelease
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warnf("release cache: corrupt entry for %s/%s: %v", owner, repo, err)
		return nil, types.FreshnessMissing
	}
	if entry.Expired(now) {
		return &entry, types.FreshnessStale
	}
	return &entry, types.FreshnessFresh
}

// Save writes entry atomically (temp file + rename), after the caller has
// already filtered ReleaseData.Assets per spec 4.6.
func (c *Cache) Save(owner, repo string, entry *types.CachedRelease) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindParse, owner+"/"+repo, err)
	}

	dest := c.path(owner, repo)
	tmp, err := os.CreateTemp(c.dir, ".cache-*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	return nil
}

// Clear removes the cached entry for one owner/repo.
func (c *Cache) Clear(owner, repo string) error {
	err := os.Remove(c.path(owner, repo))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.KindFilesystem, owner+"/"+repo, err)
	}
	return nil
}

// ClearAll removes every cached release entry.
func (c *Cache) ClearAll() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

// Stats summarizes the cache directory contents for the `cache --stats` command.
type Stats struct {
	Entries   int
	TotalSize int64
}

func (c *Cache) Stats() (Stats, error) {
	var s Stats
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, apperrors.Wrap(apperrors.KindFilesystem, "", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.Entries++
		s.TotalSize += info.Size()
	}
	return s, nil
}
