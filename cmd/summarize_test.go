package cmd

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-syntax/my-unicorn/pkg/orchestrator"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestSummarizeReportsEachOutcome(t *testing.T) {
	outcomes := []orchestrator.Outcome{
		{Target: "qownnotes", Status: orchestrator.StatusInstalled},
		{Target: "joplin", Status: orchestrator.StatusAlreadyInstalled},
		{Target: "nuclear", Status: orchestrator.StatusFailed, Stage: orchestrator.StageDownloading, Err: errors.New("connection reset")},
	}

	var err error
	out := captureStdout(t, func() {
		err = summarize(outcomes)
	})

	assert.Contains(t, out, "✓ qownnotes: installed")
	assert.Contains(t, out, "= joplin: already_installed")
	assert.Contains(t, out, "✗ nuclear: failed at downloading: connection reset")
	assert.Error(t, err)
}

func TestSummarizeReturnsNilWhenAllSucceed(t *testing.T) {
	outcomes := []orchestrator.Outcome{
		{Target: "qownnotes", Status: orchestrator.StatusInstalled},
		{Target: "joplin", Status: orchestrator.StatusUpdated},
	}

	var err error
	captureStdout(t, func() {
		err = summarize(outcomes)
	})
	assert.NoError(t, err)
}

func TestSummarizeReturnsFirstFailureOnly(t *testing.T) {
	first := errors.New("first failure")
	second := errors.New("second failure")
	outcomes := []orchestrator.Outcome{
		{Target: "a", Status: orchestrator.StatusFailed, Err: first},
		{Target: "b", Status: orchestrator.StatusFailed, Err: second},
	}

	var err error
	captureStdout(t, func() {
		err = summarize(outcomes)
	})
	assert.Same(t, first, err)
}

func TestWriteLockCommandsOnlyCoversMutatingCommands(t *testing.T) {
	assert.True(t, writeLockCommands["install"])
	assert.True(t, writeLockCommands["update"])
	assert.True(t, writeLockCommands["remove"])
	assert.True(t, writeLockCommands["migrate"])
	assert.False(t, writeLockCommands["catalog"])
	assert.False(t, writeLockCommands["cache"])
}
