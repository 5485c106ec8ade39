package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeedHex = "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"

func writeProfile(t *testing.T, dir, code, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile_"+code+".yaml"), []byte(body), 0644))
}

func TestLoadProfile_InlineSeed(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "gold", "name: Gold Publisher\nseed_hex: "+testSeedHex+"\n")

	p, err := LoadProfile(dir, "gold")
	require.NoError(t, err)
	assert.Equal(t, "Gold Publisher", p.Name)
	assert.Equal(t, "gold", p.Code) // derived from the requested code

	seed, err := p.Seed()
	require.NoError(t, err)
	assert.Equal(t, testSeedHex, seed)
}

func TestLoadProfile_SeedFromFile(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "publisher.seed")
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeedHex+"\n"), 0600))
	writeProfile(t, dir, "ops", "name: Ops Publisher\ncode: ops\nseed_file: "+seedPath+"\n")

	p, err := LoadProfile(dir, "ops")
	require.NoError(t, err)

	seed, err := p.Seed()
	require.NoError(t, err)
	assert.Equal(t, testSeedHex, seed)
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nope")
	assert.Error(t, err)
}

func TestSeed_RejectsBadLength(t *testing.T) {
	p := &SignerProfile{Code: "short", SeedHex: "abcd"}
	_, err := p.Seed()
	assert.ErrorContains(t, err, "32 bytes")
}

func TestSeed_RejectsMissingSource(t *testing.T) {
	p := &SignerProfile{Code: "empty"}
	_, err := p.Seed()
	assert.ErrorContains(t, err, "neither seed_hex nor seed_file")
}

func TestLoadAllProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "gold", "name: Gold\nseed_hex: "+testSeedHex+"\n")
	writeProfile(t, dir, "staging", "name: Staging\nseed_hex: "+testSeedHex+"\n")

	all, err := LoadAllProfiles(dir)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "Gold", all["gold"].Name)
	assert.Equal(t, "staging", all["staging"].Code) // code derived from filename
}
