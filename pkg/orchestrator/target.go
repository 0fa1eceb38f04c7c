package orchestrator

import (
	"net/url"
	"strings"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

// TargetKind distinguishes how a CLI-supplied target string resolves.
type TargetKind int

const (
	TargetCatalog TargetKind = iota
	TargetURL
)

// Target is a parsed install/update argument, per spec 6: "bare names
// (catalog lookup), owner/repo, or full GitHub URLs".
type Target struct {
	Kind  TargetKind
	Name  string // catalog app name, or "" for URL targets
	Owner string
	Repo  string
}

// ParseTarget classifies raw per spec 6's three accepted shapes.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, apperrors.New(apperrors.KindUsage, raw, "empty target")
	}

	if strings.HasPrefix(raw, "https://github.com/") || strings.HasPrefix(raw, "http://github.com/") {
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, apperrors.Wrap(apperrors.KindUsage, raw, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return Target{}, apperrors.New(apperrors.KindUsage, raw, "GitHub URL missing owner/repo")
		}
		return Target{Kind: TargetURL, Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}, nil
	}

	if strings.Contains(raw, "/") {
		parts := strings.SplitN(raw, "/", 2)
		if parts[0] == "" || parts[1] == "" {
			return Target{}, apperrors.New(apperrors.KindUsage, raw, "malformed owner/repo target")
		}
		return Target{Kind: TargetURL, Owner: parts[0], Repo: parts[1]}, nil
	}

	return Target{Kind: TargetCatalog, Name: raw}, nil
}
