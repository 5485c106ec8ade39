package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SignerProfile is a named publisher identity: who signs, with which
// Ed25519 seed, and any operator notes about the key's provenance.
type SignerProfile struct {
	Name     string `yaml:"name" json:"name"`
	Code     string `yaml:"code" json:"code"`
	SeedHex  string `yaml:"seed_hex,omitempty" json:"seed_hex,omitempty"`
	SeedFile string `yaml:"seed_file,omitempty" json:"seed_file,omitempty"`
	Notes    string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// LoadProfile loads a signer profile YAML by code. It searches the
// profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*SignerProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile SignerProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles
// directory, keyed by code.
func LoadAllProfiles(profilesDir string) (map[string]*SignerProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*SignerProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile SignerProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_gold.yaml -> gold
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// Seed resolves the profile's signing seed to hex, reading SeedFile when
// SeedHex is not set inline. The result is validated as 32 bytes of hex.
func (p *SignerProfile) Seed() (string, error) {
	seedHex := p.SeedHex
	if seedHex == "" {
		if p.SeedFile == "" {
			return "", fmt.Errorf("profile %q: neither seed_hex nor seed_file set", p.Code)
		}
		data, err := os.ReadFile(p.SeedFile)
		if err != nil {
			return "", fmt.Errorf("profile %q: reading seed file: %w", p.Code, err)
		}
		seedHex = strings.TrimSpace(string(data))
	}

	raw, err := hex.DecodeString(seedHex)
	if err != nil {
		return "", fmt.Errorf("profile %q: seed is not hex: %w", p.Code, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("profile %q: seed must be 32 bytes, got %d", p.Code, len(raw))
	}
	return seedHex, nil
}
