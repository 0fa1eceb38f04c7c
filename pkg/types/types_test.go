package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveConfigDecode(t *testing.T) {
	e := EffectiveConfig{
		"config_version": SchemaVersion,
		"metadata":       map[string]interface{}{"name": "qownnotes"},
		"source":         map[string]interface{}{"type": "github", "owner": "pbek", "repo": "QOwnNotes"},
		"appimage":       map[string]interface{}{"naming": map[string]interface{}{"target_name": "qownnotes"}},
		"verification":   map[string]interface{}{"method": "digest"},
		"icon":           map[string]interface{}{"method": "extraction"},
		"state":          map[string]interface{}{"version": "24.1.0"},
	}

	r, err := e.Decode()
	require.NoError(t, err)

	assert.Equal(t, "qownnotes", r.Metadata.Name)
	assert.Equal(t, "pbek", r.Source.Owner)
	assert.Equal(t, "QOwnNotes", r.Source.Repo)
	assert.Equal(t, "qownnotes", r.AppImage.Naming.TargetName)
	assert.Equal(t, VerifyDigest, r.Verification.Method)
	assert.Equal(t, "24.1.0", r.State.Version)
}

func TestResolvedAppToOverrides(t *testing.T) {
	r := ResolvedApp{
		ConfigVersion: SchemaVersion,
		Metadata:      Metadata{Name: "nuclear"},
		Source:        GitHubSource{Type: "github", Owner: "nuclear", Repo: "nuclear"},
		AppImage:      CatalogAppImage{Naming: AppImageNaming{TargetName: "nuclear"}},
		Verification:  VerificationSpec{Method: VerifyDigest},
		Icon:          IconSpec{Method: IconExtraction},
		State:         InstallState{Version: "2.0.0"},
	}

	m, err := r.ToOverrides()
	require.NoError(t, err)

	for _, key := range []string{"metadata", "source", "appimage", "verification", "icon"} {
		assert.Contains(t, m, key)
	}
	// State is install-local and must not leak into the persisted overrides.
	assert.NotContains(t, m, "state")

	metadata := m["metadata"].(map[string]interface{})
	assert.Equal(t, "nuclear", metadata["name"])
}

func TestResolvedAppToOverridesRoundTripsThroughDecode(t *testing.T) {
	r := ResolvedApp{
		ConfigVersion: SchemaVersion,
		Metadata:      Metadata{Name: "nuclear"},
		Source:        GitHubSource{Type: "github", Owner: "nuclear", Repo: "nuclear"},
		AppImage:      CatalogAppImage{Naming: AppImageNaming{TargetName: "nuclear"}},
		Verification:  VerificationSpec{Method: VerifyDigest},
		Icon:          IconSpec{Method: IconExtraction},
	}

	overrides, err := r.ToOverrides()
	require.NoError(t, err)
	overrides["state"] = map[string]interface{}{"version": "2.0.0"}

	decoded, err := EffectiveConfig(overrides).Decode()
	require.NoError(t, err)

	assert.Equal(t, r.Metadata, decoded.Metadata)
	assert.Equal(t, r.Source, decoded.Source)
	assert.Equal(t, "2.0.0", decoded.State.Version)
}
