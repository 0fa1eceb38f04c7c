// Package schema validates AppState, CatalogEntry, CachedRelease, and
// GlobalConfig against the structural rules spec 3/4.3 define. No
// JSON-Schema-draft-07 library appears anywhere in the example corpus
// (the teacher and its siblings validate ad hoc, field-by-field, the
// way ValidateConfig in the teacher's pkg/config does); this package
// follows that same idiom rather than pulling in an out-of-pack
// schema-validation dependency for what is, in the end, a fixed and
// fully-known set of fields.
package schema

import (
	"fmt"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

// ValidationError carries the JSON-pointer-style path to the offending
// field alongside a human-readable message.
type ValidationError struct {
	Path    string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Errors aggregates every validation failure found in one pass.
type Errors []ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msg := e[0].Error()
	if len(e) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e)-1)
	}
	return msg
}

func (e Errors) toAppError(kind apperrors.Kind, target string) error {
	if len(e) == 0 {
		return nil
	}
	return &apperrors.Error{Kind: kind, Target: target, Msg: e.Error()}
}

// IsV1 detects the pre-2.0 flat AppState shape: presence of top-level
// owner/repo keys and the absence of config_version=="2.0.0". It is used
// exclusively to raise a migration-required error — v1 files are never
// loaded into the v2 AppState struct at runtime (spec 4.3).
func IsV1(raw map[string]interface{}) bool {
	if cv, ok := raw["config_version"].(string); ok && cv == types.SchemaVersion {
		return false
	}
	_, hasOwner := raw["owner"]
	_, hasRepo := raw["repo"]
	return hasOwner || hasRepo
}

// ValidateAppState checks an AppState against the invariants of spec 3/8.
func ValidateAppState(name string, s *types.AppState, catalogExists func(string) bool) error {
	var errs Errors
	if s.ConfigVersion != types.SchemaVersion {
		errs = append(errs, ValidationError{"/config_version", fmt.Sprintf("must equal %q", types.SchemaVersion)})
	}
	switch s.Source {
	case types.SourceCatalog:
		if s.CatalogRef == "" {
			errs = append(errs, ValidationError{"/catalog_ref", "required when source=catalog"})
		} else if catalogExists != nil && !catalogExists(s.CatalogRef) {
			return apperrors.New(apperrors.KindCatalogMissing, name, "catalog entry not found: "+s.CatalogRef)
		}
	case types.SourceURL:
		if s.CatalogRef != "" {
			errs = append(errs, ValidationError{"/catalog_ref", "must be empty when source=url"})
		}
		if len(s.Overrides) == 0 {
			errs = append(errs, ValidationError{"/overrides", "url-sourced apps must carry a full configuration block"})
		} else {
			for _, key := range []string{"metadata", "source", "appimage", "verification", "icon"} {
				if _, ok := s.Overrides[key]; !ok {
					errs = append(errs, ValidationError{"/overrides/" + key, "required for source=url"})
				}
			}
		}
	default:
		errs = append(errs, ValidationError{"/source", "must be \"catalog\" or \"url\""})
	}
	if s.State.Version == "" {
		errs = append(errs, ValidationError{"/state/version", "required"})
	}
	return errs.toAppError(apperrors.KindConfig, name)
}

// ValidateCatalogEntry checks a bundled catalog file's structure.
func ValidateCatalogEntry(name string, c *types.CatalogEntry) error {
	var errs Errors
	if c.Metadata.Name == "" {
		errs = append(errs, ValidationError{"/metadata/name", "required"})
	}
	if c.Source.Type != "github" {
		errs = append(errs, ValidationError{"/source/type", "must be \"github\""})
	}
	if c.Source.Owner == "" || c.Source.Repo == "" {
		errs = append(errs, ValidationError{"/source", "owner and repo are required"})
	}
	if c.AppImage.Naming.TargetName == "" {
		errs = append(errs, ValidationError{"/appimage/naming/target_name", "required"})
	}
	switch c.Verification.Method {
	case types.VerifyDigest, types.VerifyChecksumFile, types.VerifySkip:
	default:
		errs = append(errs, ValidationError{"/verification/method", "must be digest, checksum_file, or skip"})
	}
	switch c.Icon.Method {
	case types.IconExtraction, types.IconDownload, types.IconNone:
	default:
		errs = append(errs, ValidationError{"/icon/method", "must be extraction, download, or none"})
	}
	return errs.toAppError(apperrors.KindConfig, name)
}

// ValidateCachedRelease checks a release-cache entry's structure.
func ValidateCachedRelease(key string, c *types.CachedRelease) error {
	var errs Errors
	if c.TTLHours <= 0 {
		errs = append(errs, ValidationError{"/ttl_hours", "must be positive"})
	}
	if c.ReleaseData.Owner == "" || c.ReleaseData.Repo == "" {
		errs = append(errs, ValidationError{"/release_data", "owner and repo are required"})
	}
	return errs.toAppError(apperrors.KindConfig, key)
}

// ValidateGlobalConfig checks the loaded/about-to-be-saved GlobalConfig.
func ValidateGlobalConfig(c *types.GlobalConfig) error {
	var errs Errors
	if c.MaxConcurrentDownloads < 1 {
		errs = append(errs, ValidationError{"/max_concurrent_downloads", "must be >= 1"})
	}
	if c.MaxBackup < 0 {
		errs = append(errs, ValidationError{"/max_backup", "must be >= 0"})
	}
	if c.Network.RetryAttempts < 0 {
		errs = append(errs, ValidationError{"/network/retry_attempts", "must be >= 0"})
	}
	if c.Network.TimeoutSeconds < 1 {
		errs = append(errs, ValidationError{"/network/timeout_seconds", "must be >= 1"})
	}
	return errs.toAppError(apperrors.KindConfig, "")
}
