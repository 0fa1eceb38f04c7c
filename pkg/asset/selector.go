package asset

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/platform"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
)

var specialTokens = []string{"experimental", "beta", "legacy"}

func countSpecialTokens(name string) int {
	lower := strings.ToLower(name)
	n := 0
	for _, tok := range specialTokens {
		if strings.Contains(lower, tok) {
			n++
		}
	}
	return n
}

func matchesArch(name, arch string) bool {
	lower := strings.ToLower(name)
	for _, alias := range platform.ArchAliases(arch) {
		if strings.Contains(lower, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// candidate pairs an asset with its computed selection rank fields.
type candidate struct {
	asset          types.ReleaseAsset
	matchesSuffix  bool
	specialTokens  int
}

// SelectAppImage ranks the filtered assets and returns the single best
// AppImage match, per spec 4.6:
//  1. filename contains the host architecture — required, others discarded
//  2. if the catalog pins naming.template, the filename must match that
//     doublestar glob — required, others discarded
//  3. filename contains the first non-empty characteristic suffix — higher rank
//  4. fewer special tokens (experimental/beta/legacy) — higher rank
//  5. tie-break: lexicographic on name
func SelectAppImage(assets []types.ReleaseAsset, hostArch string, characteristicSuffix []string) (types.ReleaseAsset, error) {
	return SelectAppImageTemplate(assets, hostArch, characteristicSuffix, "")
}

// SelectAppImageTemplate is SelectAppImage with an optional naming.template
// glob constraint (spec 4.6's asset-pinning escape hatch for releases whose
// naming convention can't be expressed through architecture + suffix alone).
func SelectAppImageTemplate(assets []types.ReleaseAsset, hostArch string, characteristicSuffix []string, template string) (types.ReleaseAsset, error) {
	var archMatched []types.ReleaseAsset
	for _, a := range assets {
		if !isAppImage(a.Name) || !matchesArch(a.Name, hostArch) {
			continue
		}
		if template != "" {
			ok, err := doublestar.Match(template, a.Name)
			if err != nil || !ok {
				continue
			}
		}
		archMatched = append(archMatched, a)
	}
	if len(archMatched) == 0 {
		return types.ReleaseAsset{}, apperrors.New(apperrors.KindSelection, "", "no AppImage asset found for architecture "+hostArch)
	}

	suffix := ""
	for _, s := range characteristicSuffix {
		if s != "" {
			suffix = s
			break
		}
	}

	candidates := make([]candidate, len(archMatched))
	for i, a := range archMatched {
		candidates[i] = candidate{
			asset:         a,
			matchesSuffix: suffix != "" && strings.Contains(strings.ToLower(a.Name), strings.ToLower(suffix)),
			specialTokens: countSpecialTokens(a.Name),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.matchesSuffix != cj.matchesSuffix {
			return ci.matchesSuffix
		}
		if ci.specialTokens != cj.specialTokens {
			return ci.specialTokens < cj.specialTokens
		}
		return ci.asset.Name < cj.asset.Name
	})

	return candidates[0].asset, nil
}

// SelectChecksumFile pairs a checksum sidecar to the chosen AppImage.
// When expected filenames are pinned by the catalog, the first match
// wins; otherwise it falls back to name-similarity: a checksum file
// whose name is a prefix of (or equal to) the AppImage name plus a known
// extension, and then to the first checksum-shaped asset of any name
// (whole-release manifests such as SHA256SUMS). Returns (asset, true) on
// a match, (zero, false) when no asset is checksum-shaped — absence is
// not an error, since checksum_file is only one of three verification
// strategies.
func SelectChecksumFile(assets []types.ReleaseAsset, appImageName string, expected []types.ChecksumFileSpec) (types.ReleaseAsset, bool) {
	if len(expected) > 0 {
		for _, spec := range expected {
			for _, a := range assets {
				if a.Name == spec.Filename {
					return a, true
				}
			}
		}
	}

	base := strings.TrimSuffix(appImageName, ".AppImage")
	base = strings.TrimSuffix(base, ".appimage")
	for _, a := range assets {
		if isChecksumFile(a.Name) && strings.HasPrefix(a.Name, base) {
			return a, true
		}
	}
	// Whole-release checksum manifests (checksums.txt, SHA256SUMS, latest-linux.yml)
	// aren't named after the AppImage; accept the first checksum-shaped file present.
	for _, a := range assets {
		if isChecksumFile(a.Name) {
			return a, true
		}
	}
	return types.ReleaseAsset{}, false
}
