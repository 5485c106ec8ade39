// Package integrity computes the flat content-addressed root that binds a
// Shard's entire on-disk tree into a single digest.
//
// Despite the "merkle_root" manifest field it feeds, this is not a binary
// tree: it is a single streaming SHA-256 accumulator fed each file's leaf
// hash in sorted-path order. The field name survives only for wire
// compatibility with earlier tooling.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LeafHash computes SHA256(relPath || 0x00 || content), the per-file leaf
// used by both the compiler and the verifier.
func LeafHash(relPath string, content []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(relPath))
	h.Write([]byte{0})
	h.Write(content)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Root computes the flat integrity root over relFiles (forward-slashed,
// relative to root) read from disk under root. Files are processed in
// sorted order regardless of the input order.
func Root(root string, relFiles []string) (string, error) {
	sorted := append([]string(nil), relFiles...)
	sort.Strings(sorted)

	acc := sha256.New()
	for _, rel := range sorted {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		leaf := LeafHash(rel, content)
		acc.Write(leaf[:])
	}
	return hex.EncodeToString(acc.Sum(nil)), nil
}

// DiscoverFiles walks root and returns every regular file's path relative
// to root (forward-slashed), excluding the manifest and its detached
// signature — the two artifacts that are written after the root is
// computed and therefore cannot be inputs to it.
func DiscoverFiles(root string) ([]string, error) {
	var rel []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		r, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		r = filepath.ToSlash(r)
		if r == "manifest.json" || r == "sig/manifest.sig" {
			return nil
		}
		rel = append(rel, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rel)
	return rel, nil
}
