// Package shardsign builds and signs the manifest that seals a Shard:
// canonical JSON (RFC 8785) over the integrity root, signed with the
// publisher's Ed25519 key.
//
// Canonicalization uses github.com/gowebpki/jcs rather than a hand-rolled
// marshaller; the verifier (pkg/shardverify) runs the same transform
// independently, and the test suites prove the two sides agree.
package shardsign

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Manifest is the sealed description of a Shard's contents.
type Manifest struct {
	Spec        string       `json:"spec"`
	Created     string       `json:"created"`
	CapsuleHash string       `json:"capsule_hash"`
	MerkleRoot  string       `json:"merkle_root"`
	Integrity   IntegritySec `json:"integrity"`
	Publisher   PublisherSec `json:"publisher"`
}

// IntegritySec is the manifest's verifier-native integrity block.
type IntegritySec struct {
	Schema     string   `json:"schema"`
	Algorithm  string   `json:"algorithm"`
	Files      []string `json:"files"`
	MerkleRoot string   `json:"merkle_root"`
}

// PublisherSec carries the publisher's hex-encoded Ed25519 verify key.
type PublisherSec struct {
	Pubkey string `json:"pubkey"`
}

// Signed is the output of Sign: the canonical manifest bytes plus the
// detached signature and raw public key, ready to write to disk.
type Signed struct {
	CanonicalJSON []byte
	Signature     []byte // raw 64 bytes
	PublicKey     []byte // raw 32 bytes
}

// NewManifest assembles a Manifest from its constituent facts.
func NewManifest(created, capsuleHash, integrityRoot string, files []string, pubKey ed25519.PublicKey) Manifest {
	return Manifest{
		Spec:        "1.0",
		Created:     created,
		CapsuleHash: capsuleHash,
		MerkleRoot:  integrityRoot,
		Integrity: IntegritySec{
			Schema:     "axm-merkle-v1",
			Algorithm:  "sha256",
			Files:      files,
			MerkleRoot: integrityRoot,
		},
		Publisher: PublisherSec{Pubkey: hex.EncodeToString(pubKey)},
	}
}

// Canonicalize marshals m with encoding/json (to respect struct tags and
// field selection) and then runs the result through jcs.Transform to
// obtain the RFC 8785 canonical byte form — sorted keys, compact
// separators, no ASCII escaping.
func Canonicalize(m Manifest) ([]byte, error) {
	intermediate, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("shardsign: marshaling manifest: %w", err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("shardsign: canonicalizing manifest: %w", err)
	}
	return canonical, nil
}

// Sign canonicalizes m and signs the resulting bytes with priv.
func Sign(m Manifest, priv ed25519.PrivateKey) (*Signed, error) {
	canonical, err := Canonicalize(m)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(priv, canonical)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("shardsign: private key has no Ed25519 public half")
	}
	return &Signed{
		CanonicalJSON: canonical,
		Signature:     sig,
		PublicKey:     pub,
	}, nil
}
