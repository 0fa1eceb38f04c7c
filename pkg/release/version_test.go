package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		candidate string
		installed string
		expected  bool
	}{
		{"1.2.4", "1.2.3", true},
		{"v1.2.4", "v1.2.3", true},
		{"1.2.3", "1.2.4", false},
		{"1.2.3", "1.2.3", false},
		{"2.0.0", "1.9.9", true},
		{"1.10", "1.9", true},
		{"20240101", "20231231", true},
	}
	for _, tt := range tests {
		t.Run(tt.candidate+"_vs_"+tt.installed, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNewer(tt.candidate, tt.installed))
		})
	}
}

func TestSortDescending(t *testing.T) {
	versions := []string{"1.0.0", "2.1.0", "1.5.0", "2.0.0"}
	SortDescending(versions)
	assert.Equal(t, []string{"2.1.0", "2.0.0", "1.5.0", "1.0.0"}, versions)
}
