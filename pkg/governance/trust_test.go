package governance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingTrustStoreIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	ts, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, ts.TrustedPublishers)
	assert.False(t, ts.Trusts("ab12"))
}

func TestLoadAndTrustsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "governance"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "governance", "trust_store.json"),
		[]byte(`{"trusted_publishers":["AB12CD"]}`),
		0644,
	))

	ts, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, ts.Trusts("ab12cd"))
	assert.False(t, ts.Trusts("ffffff"))
}

func TestDiscoverRootFindsTrustStoreInParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "governance"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "governance", "trust_store.json"), []byte(`{}`), 0644))

	shardDir := filepath.Join(root, "shards", "demo")
	require.NoError(t, os.MkdirAll(shardDir, 0755))

	found, err := DiscoverRoot(shardDir)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestDiscoverRootFallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()
	found, err := DiscoverRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, found)
}
