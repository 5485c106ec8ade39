// Package ontology extracts the embodied-agent wheel-slip domain's
// entities, claims, spans and provenance rows from a Capsule's
// events.jsonl, and drives the Strict Judge over any binary sensor
// streams to produce StreamEvidence rows.
package ontology

import "errors"

// Entity is a node in the knowledge graph: a deduplicated (namespace,
// label) pair.
type Entity struct {
	EntityID  string `json:"entity_id"`
	Namespace string `json:"namespace"`
	Label     string `json:"label"`
	Type      string `json:"type"`
}

// Claim asserts a (subject, predicate, object) triple at a given trust
// tier. Object is either another entity's ID (ObjectType == "entity") or a
// canonicalized literal.
type Claim struct {
	ClaimID    string `json:"claim_id"`
	Subject    string `json:"subject"`
	Predicate  string `json:"predicate"`
	Object     string `json:"object"`
	ObjectType string `json:"object_type"`
	Tier       int    `json:"tier"`
}

// Span is the exact byte range in events.jsonl that a claim was derived
// from.
type Span struct {
	SpanID     string `json:"span_id"`
	SourceHash string `json:"source_hash"`
	ByteStart  int    `json:"byte_start"`
	ByteEnd    int    `json:"byte_end"`
	Text       string `json:"text"`
}

// Provenance links a claim to the span that justifies it.
type Provenance struct {
	ProvenanceID string `json:"provenance_id"`
	ClaimID      string `json:"claim_id"`
	SpanID       string `json:"span_id"`
	SourceHash   string `json:"source_hash"`
	ByteStart    int    `json:"byte_start"`
	ByteEnd      int    `json:"byte_end"`
}

// StreamEvidence records one verified binary record (latent or residual).
type StreamEvidence struct {
	FrameID     int32  `json:"frame_id"`
	Stream      string `json:"stream"`
	File        string `json:"file"`
	Offset      int64  `json:"offset"`
	Length      int32  `json:"length"`
	Status      string `json:"status"`
	ContentHash string `json:"content_hash"`
}

// Tier levels named for readability at call sites. The full authoritative
// range is 0..5; 3..5 carry progressively weaker assertions.
const (
	TierAxiom       = 0
	TierSafetyRule  = 1
	TierObservation = 2
	TierMax         = 5
)

// ErrTierOutOfRange rejects claims whose tier falls outside 0..TierMax.
var ErrTierOutOfRange = errors.New("ontology: claim tier out of range")

// Namespace is the fixed domain namespace for every entity minted by this
// extractor.
const Namespace = "embodied/wheel_slip"

// Result is everything the extractor produces from a single events.jsonl
// pass (plus the stream-evidence pass, if applicable).
type Result struct {
	Entities   []Entity
	Claims     []Claim
	Spans      []Span
	Provenance []Provenance
	Streams    []StreamEvidence
	SourceHash string
}
