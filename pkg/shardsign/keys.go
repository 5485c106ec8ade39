package shardsign

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// GoldSeedHex is the fixed 32-byte seed used for --gold (deterministic
// demo/test) shards. It must also appear, as its derived public key, in
// the default governance trust store so a freshly compiled gold Shard
// verifies without additional setup.
const GoldSeedHex = "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"

// GoldTimestamp is the fixed "created" timestamp stamped onto gold
// shards so repeated --gold builds are byte-identical.
const GoldTimestamp = "2026-01-01T00:00:00Z"

// KeyFromSeedHex derives an Ed25519 private key from a hex-encoded 32-byte
// seed.
func KeyFromSeedHex(seedHex string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("shardsign: decoding seed hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("shardsign: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// GoldKey returns the fixed deterministic signing key used for --gold
// builds.
func GoldKey() ed25519.PrivateKey {
	key, err := KeyFromSeedHex(GoldSeedHex)
	if err != nil {
		// GoldSeedHex is a compile-time constant; a decode failure here
		// indicates a programming error, not a runtime condition.
		panic(err)
	}
	return key
}
