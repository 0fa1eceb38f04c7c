// Package release implements the GitHub release client and cache (spec
// 4.5) plus the version-comparison helper the update orchestrator (4.9)
// uses to decide whether a fetched release is newer than what's installed.
package release

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsNewer reports whether candidate is a newer version than installed.
// It tries strict semver comparison first (Masterminds/semver, the
// constraint-resolution library the corpus already uses for catalog
// version pinning); if either string fails to parse as semver, it falls
// back to a numeric dot-segment comparison, and finally to plain
// lexicographic ordering. This mirrors the documented ambiguity in spec
// 9: version strings in the wild are not reliably semver.
func IsNewer(candidate, installed string) bool {
	cv, cerr := semver.NewVersion(normalizeForSemver(candidate))
	iv, ierr := semver.NewVersion(normalizeForSemver(installed))
	if cerr == nil && ierr == nil {
		return cv.GreaterThan(iv)
	}
	return compareDotted(candidate, installed) > 0
}

func normalizeForSemver(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// compareDotted numerically compares dot-separated version segments,
// falling back to a byte-wise string compare when no segment parses as
// an integer at all (pure lexicographic fallback).
func compareDotted(a, b string) int {
	a = normalizeForSemver(a)
	b = normalizeForSemver(b)
	if idx := strings.IndexByte(a, '+'); idx != -1 {
		a = a[:idx]
	}
	if idx := strings.IndexByte(b, '+'); idx != -1 {
		b = b[:idx]
	}

	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}

	anyNumeric := false
	for i := 0; i < n; i++ {
		var na, nb int
		var errA, errB error
		if i < len(pa) {
			na, errA = strconv.Atoi(pa[i])
		} else {
			errA = strconv.ErrSyntax
		}
		if i < len(pb) {
			nb, errB = strconv.Atoi(pb[i])
		} else {
			errB = strconv.ErrSyntax
		}
		if errA == nil && errB == nil {
			anyNumeric = true
			if na != nb {
				if na > nb {
					return 1
				}
				return -1
			}
			continue
		}
		break
	}
	if anyNumeric {
		return 0
	}
	return strings.Compare(a, b)
}

// SortDescending sorts version strings newest-first using IsNewer.
func SortDescending(versions []string) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && IsNewer(versions[j], versions[j-1]); j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}
