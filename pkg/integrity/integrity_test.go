package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootMatchesManualAccumulation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world"), 0644))

	got, err := Root(dir, []string{"b.txt", "a.txt"}) // unsorted input
	require.NoError(t, err)

	leafA := LeafHash("a.txt", []byte("hello"))
	leafB := LeafHash("b.txt", []byte("world"))
	acc := sha256.New()
	acc.Write(leafA[:])
	acc.Write(leafB[:])
	want := hex.EncodeToString(acc.Sum(nil))

	assert.Equal(t, want, got)
}

func TestDiscoverFilesExcludesManifestAndSignature(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sig"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sig", "manifest.sig"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.bin"), []byte("y"), 0644))

	rel, err := DiscoverFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"content.bin"}, rel)
}
