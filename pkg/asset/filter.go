// Package asset implements the pre-cache filter and the runtime
// selector described in spec 4.6, directly grounded on the teacher's
// three-stage FilterAssetsByPlatform pipeline (pkg/manager/asset_filter.go)
// but re-tuned for this domain: Linux AppImages only, with the specific
// exclusion rules spec 4.6 names (ARM-unless-target-ARM, macOS, Windows,
// experimental/beta-unless-prerelease-catalog).
package asset

import (
	"strings"

	"github.com/samber/lo"

	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

var appImageSuffixes = []string{".appimage"}

var checksumFileNames = []string{
	".sha256", ".sha512", ".sha256sum", ".sha512sum", ".digest",
}

var checksumExactNames = []string{
	"checksums.txt", "latest-linux.yml",
}

func isAppImage(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range appImageSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

func isChecksumFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range checksumFileNames {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	for _, exact := range checksumExactNames {
		if lower == exact {
			return true
		}
	}
	if strings.HasPrefix(strings.ToUpper(name), "SHA256SUMS") || strings.HasPrefix(strings.ToUpper(name), "SHA512SUMS") {
		return true
	}
	return false
}

func isMacOS(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".dmg") || strings.Contains(lower, "-mac-") || strings.HasPrefix(lower, "latest-mac")
}

func isWindows(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".msi") {
		return true
	}
	if strings.HasSuffix(lower, ".zip") && strings.Contains(name, "Win") {
		return true
	}
	return false
}

func isARM(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "arm64") || strings.Contains(lower, "aarch64") || strings.Contains(lower, "armv7") || strings.Contains(lower, "armhf")
}

func isExperimentalOrBeta(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "experimental") || strings.Contains(lower, "beta")
}

// Filter keeps only assets relevant to this system: AppImages and their
// checksum sidecars, applying spec 4.6's exclusion rules. targetArch is
// the normalized host architecture (platform.HostArch); catalogPrerelease
// is the catalog entry's source.prerelease flag (false for URL installs
// unless the caller knows otherwise).
func Filter(assets []types.ReleaseAsset, targetArch string, catalogPrerelease bool) []types.ReleaseAsset {
	targetIsARM := strings.Contains(targetArch, "arm") || strings.Contains(targetArch, "aarch64")

	kept := lo.Filter(assets, func(a types.ReleaseAsset, _ int) bool {
		name := a.Name
		if !isAppImage(name) && !isChecksumFile(name) {
			return false
		}
		if isMacOS(name) || isWindows(name) {
			return false
		}
		if isARM(name) && !targetIsARM {
			return false
		}
		if isExperimentalOrBeta(name) && !catalogPrerelease {
			return false
		}
		return true
	})
	return kept
}
