// Package config holds shardctl's ambient configuration: environment
// driven defaults plus YAML signer profiles for publisher identities.
package config

import "os"

// Config holds CLI configuration.
type Config struct {
	LogLevel    string
	RepoRoot    string // repository root holding governance/; empty means auto-discover
	ProfilesDir string
	SigningSeed string // hex Ed25519 seed; empty means the built-in gold key
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("SHARDCTL_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	profilesDir := os.Getenv("SHARDCTL_PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	return &Config{
		LogLevel:    logLevel,
		RepoRoot:    os.Getenv("SHARDCTL_REPO_ROOT"),
		ProfilesDir: profilesDir,
		SigningSeed: os.Getenv("SHARDCTL_SIGNING_SEED"),
	}
}
