package config_test

import (
	"testing"

	"github.com/Mindburn-Labs/axm/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHARDCTL_LOG_LEVEL", "")
	t.Setenv("SHARDCTL_REPO_ROOT", "")
	t.Setenv("SHARDCTL_PROFILES_DIR", "")
	t.Setenv("SHARDCTL_SIGNING_SEED", "")

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "profiles", cfg.ProfilesDir)
	assert.Empty(t, cfg.RepoRoot)
	assert.Empty(t, cfg.SigningSeed)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHARDCTL_LOG_LEVEL", "DEBUG")
	t.Setenv("SHARDCTL_REPO_ROOT", "/srv/evidence")
	t.Setenv("SHARDCTL_PROFILES_DIR", "/etc/shardctl/profiles")
	t.Setenv("SHARDCTL_SIGNING_SEED", "ab"+"cd")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/srv/evidence", cfg.RepoRoot)
	assert.Equal(t, "/etc/shardctl/profiles", cfg.ProfilesDir)
	assert.Equal(t, "abcd", cfg.SigningSeed)
}
