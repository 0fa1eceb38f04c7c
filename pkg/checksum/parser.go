package checksum

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// latestLinuxYML mirrors the subset of electron-builder's latest-linux.yml
// this system cares about: a top-level sha512 (base64) for the default
// artifact, plus a files list carrying the same for each named artifact.
type latestLinuxYML struct {
	Version string `yaml:"version"`
	SHA512  string `yaml:"sha512"`
	Files   []struct {
		URL    string `yaml:"url"`
		SHA512 string `yaml:"sha512"`
	} `yaml:"files"`
}

func tryParseElectronYAML(content, filename string) (value string, hashType HashType, ok bool) {
	if !strings.Contains(content, "sha512:") || !strings.Contains(content, "version:") {
		return "", "", false
	}
	var doc latestLinuxYML
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return "", "", false
	}

	b64 := doc.SHA512
	for _, f := range doc.Files {
		if f.URL == filename || strings.HasSuffix(f.URL, "/"+filename) {
			b64 = f.SHA512
			break
		}
	}
	if b64 == "" {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", "", false
	}
	return hex.EncodeToString(raw), HashTypeSHA512, true
}

func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func looksLikeWholeFileChecksum(s string) bool {
	s = strings.TrimSpace(s)
	if !isHexString(s) {
		return false
	}
	switch len(s) {
	case 32, 40, 64, 96, 128:
		return true
	default:
		return false
	}
}

// stripBOMAndNormalize removes a UTF-8 BOM and normalizes CRLF to LF, so
// the line-based parsing below never has to special-case either.
func stripBOMAndNormalize(content string) string {
	content = strings.TrimPrefix(content, string(rune(0xFEFF)))
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return content
}

// ParseChecksumFile extracts the hash for filename out of a checksum
// sidecar file, per spec 4.8's required format coverage:
//   - simple two-column ("<hex>  <filename>", star-prefix allowed)
//   - path-bearing ("<hex>  ./path/to/filename")
//   - YAML (electron's latest-linux.yml, base64 sha512)
//   - GitHub-style multi-column (yq-produced "filename  sha256  sha512")
//   - whole-file single-line ("<filename>.sha256" containing only hex)
//
// fileURL may be a bare filename or a full URL; only its basename is matched.
func ParseChecksumFile(content, fileURL string) (value string, hashType HashType, err error) {
	filename := filepath.Base(fileURL)
	content = stripBOMAndNormalize(content)

	if v, h, ok := tryParseElectronYAML(content, filename); ok {
		return v, h, nil
	}

	lines := strings.Split(content, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Two-column: "<hex>  <filename>" or "<hex> *<filename>" or path-bearing.
		checksumPart := fields[0]
		filePart := strings.TrimPrefix(strings.Join(fields[1:], " "), "*")
		if filePart == filename || strings.HasSuffix(filePart, "/"+filename) {
			if strings.Contains(checksumPart, ":") {
				if v, h, perr := ParseDigest(checksumPart); perr == nil {
					return v, h, nil
				}
			}
			return strings.ToLower(checksumPart), DetectHashType(checksumPart), nil
		}

		// yq multi-checksum: "filename  sha256  sha512 ...".
		if fields[0] == filename || strings.HasSuffix(fields[0], "/"+filename) {
			var best, bestType string
			for _, cand := range fields[1:] {
				switch len(cand) {
				case 64:
					best, bestType = cand, string(HashTypeSHA256)
				case 128:
					if bestType != string(HashTypeSHA256) {
						best, bestType = cand, string(HashTypeSHA512)
					}
				case 40:
					if best == "" {
						best, bestType = cand, string(HashTypeSHA1)
					}
				}
			}
			if best != "" {
				return strings.ToLower(best), HashType(bestType), nil
			}
		}
	}

	var nonEmpty []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			nonEmpty = append(nonEmpty, line)
		}
	}
	if len(nonEmpty) == 1 && looksLikeWholeFileChecksum(nonEmpty[0]) {
		v := strings.ToLower(nonEmpty[0])
		return v, DetectHashType(v), nil
	}

	return "", "", fmt.Errorf("checksum not found for file %q in checksum file", filename)
}
