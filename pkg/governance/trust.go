// Package governance locates and loads the repository's trust store:
// governance/trust_store.json, the allowlist of publisher public keys the
// verifier accepts.
package governance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TrustStore lists the hex-encoded (any case) Ed25519 public keys
// authorized to publish Shards.
type TrustStore struct {
	TrustedPublishers []string `json:"trusted_publishers"`
}

// TrustStorePath is the fixed relative location of a repository's trust
// store.
const TrustStorePath = "governance/trust_store.json"

// DiscoverRoot walks up from startDir looking for governance/trust_store.json
// or a go.mod marking a repository root. If neither is found before
// reaching the filesystem root, startDir itself is returned.
func DiscoverRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, TrustStorePath)) || fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir, nil
		}
		dir = parent
	}
}

// Load reads the trust store at repoRoot. A missing file is not an error:
// it is treated as an empty allowlist, which trusts nobody.
func Load(repoRoot string) (*TrustStore, error) {
	data, err := os.ReadFile(filepath.Join(repoRoot, TrustStorePath))
	if os.IsNotExist(err) {
		return &TrustStore{TrustedPublishers: nil}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("governance: reading trust store: %w", err)
	}

	var ts TrustStore
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("governance: parsing trust store: %w", err)
	}
	return &ts, nil
}

// Trusts reports whether pubkeyHex (any case) appears in the trust store.
func (ts *TrustStore) Trusts(pubkeyHex string) bool {
	want := strings.ToLower(pubkeyHex)
	for _, k := range ts.TrustedPublishers {
		if strings.ToLower(k) == want {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
