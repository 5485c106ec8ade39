// Package canonid computes the deterministic, content-addressed
// identifiers used throughout a Shard's knowledge graph (entities, claims,
// spans, provenance records).
//
// Text canonicalization is a normalize-then-fold pipeline: Unicode NFKC,
// then casefold, then whitespace collapse. NFKC (not NFC) because entity
// labels and claim predicates must compare equal under compatibility
// decomposition, not just canonical composition.
package canonid

import (
	"crypto/sha256"
	"encoding/base32"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var b32Lower = base32.StdEncoding.WithPadding(base32.NoPadding)

// idDigestLen is the number of leading SHA-256 bytes retained before
// base32 encoding. 15 bytes (120 bits) is ample collision resistance for a
// content-addressed local identifier and keeps IDs short.
const idDigestLen = 15

// Canonicalize normalizes text the way every ID function in this package
// expects its inputs to already be normalized: NFKC form, casefolded, with
// runs of whitespace collapsed to a single space.
func Canonicalize(text string) string {
	if text == "" {
		return ""
	}
	t := norm.NFKC.String(text)
	t = strings.ToLower(t) // casefold proxy: inputs are restricted to ASCII/simple Unicode labels
	fields := strings.Fields(t)
	return strings.Join(fields, " ")
}

func hashWithPrefix(payload []byte, prefix string) string {
	sum := sha256.Sum256(payload)
	enc := strings.ToLower(b32Lower.EncodeToString(sum[:idDigestLen]))
	return prefix + enc
}

// EntityID derives an entity identifier from its namespace and label. Both
// inputs are canonicalized before hashing so that "Wheel  Slip" and
// "wheel slip" collide onto the same entity.
func EntityID(namespace, label string) string {
	payload := Canonicalize(namespace) + "\x00" + Canonicalize(label)
	return hashWithPrefix([]byte(payload), "e_")
}

// ClaimID derives a claim identifier from its subject, predicate, object
// and object type. When objectType is "entity", obj is expected to already
// be a resolved entity ID (the caller's responsibility) rather than a raw
// label; any other objectType treats obj as a literal and canonicalizes it.
func ClaimID(subjectID, predicate, obj, objectType string) string {
	objClean := obj
	if objectType != "entity" {
		objClean = Canonicalize(obj)
	}
	payload := subjectID + "\x00" + Canonicalize(predicate) + "\x00" + objectType + "\x00" + objClean
	return hashWithPrefix([]byte(payload), "c_")
}

// SpanID derives a span identifier from the byte-offset range of a claim's
// supporting text within the source event log.
func SpanID(sourceHash string, start, end int, text string) string {
	payload := strings.Join([]string{sourceHash, strconv.Itoa(start), strconv.Itoa(end), text}, "\x00")
	return hashWithPrefix([]byte(payload), "s_")
}

// ProvenanceID derives a provenance identifier linking a claim to the span
// that supports it.
func ProvenanceID(claimID, spanID string) string {
	payload := claimID + "\x00" + spanID
	return hashWithPrefix([]byte(payload), "p_")
}
