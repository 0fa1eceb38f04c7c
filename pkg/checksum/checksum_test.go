package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHashType(t *testing.T) {
	tests := []struct {
		value    string
		expected HashType
	}{
		{"d41d8cd98f00b204e9800998ecf8427e", HashTypeMD5},
		{"da39a3ee5e6b4b0d3255bfef95601890afd80709", HashTypeSHA1},
		{"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashTypeSHA256},
		{"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e", HashTypeSHA512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectHashType(tt.value))
	}
}

func TestParseDigest(t *testing.T) {
	value, hashType, err := ParseDigest("sha256:ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", value)
	assert.Equal(t, HashTypeSHA256, hashType)

	_, _, err = ParseDigest("not-a-digest")
	assert.Error(t, err)
}

func TestComputeFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, err := ComputeFileHash(path, HashTypeSHA256)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
}

func TestConstantTimeEqualHex(t *testing.T) {
	assert.True(t, ConstantTimeEqualHex("ABCDEF", "abcdef"))
	assert.True(t, ConstantTimeEqualHex(" abcdef ", "abcdef"))
	assert.False(t, ConstantTimeEqualHex("abcdef", "abcdee"))
	assert.False(t, ConstantTimeEqualHex("abc", "abcdef"))
}
