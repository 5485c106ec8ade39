// Package compiler wires the Ontology Extractor, Integrity Root, Manifest
// Signer and Shard Writer together into the single top-level Compile
// operation: Capsule directory in, signed Shard directory out.
package compiler

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/axm/pkg/integrity"
	"github.com/Mindburn-Labs/axm/pkg/ontology"
	"github.com/Mindburn-Labs/axm/pkg/shardsign"
	"github.com/Mindburn-Labs/axm/pkg/shardwriter"
)

// Options configures a single Compile call.
type Options struct {
	SigningKey ed25519.PrivateKey // nil means GoldKey()
	Timestamp  string             // empty means time.Now(), "Z" suffix, second precision
	Logger     *slog.Logger
}

// Stats summarizes what a Compile run produced, for CLI reporting.
type Stats struct {
	Entities int
	Claims   int
	Spans    int
}

// Compile reads the Capsule at capsuleDir and writes a signed Shard to
// outDir, creating it if necessary.
func Compile(capsuleDir, outDir string, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	signingKey := opts.SigningKey
	if signingKey == nil {
		signingKey = shardsign.GoldKey()
	}

	timestamp := opts.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
	}

	// Correlates this run's log lines; never part of any content-addressed
	// ID or output byte, which must stay pure functions of the Capsule.
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Info("compiling capsule", "capsule", capsuleDir, "out", outDir)

	result, err := ontology.Extract(capsuleDir, logger)
	if err != nil {
		return Stats{}, fmt.Errorf("compiler: extracting ontology: %w", err)
	}

	for _, dir := range []string{"graph", "evidence", "sig", "content"} {
		if err := os.MkdirAll(filepath.Join(outDir, dir), 0755); err != nil {
			return Stats{}, fmt.Errorf("compiler: creating %s: %w", dir, err)
		}
	}

	if err := writeGraphAndEvidence(outDir, result); err != nil {
		return Stats{}, err
	}

	pub, ok := signingKey.Public().(ed25519.PublicKey)
	if !ok {
		return Stats{}, fmt.Errorf("compiler: signing key has no Ed25519 public half")
	}
	// The publisher key is covered by the integrity root, so it is written
	// before the file list is discovered.
	if err := os.WriteFile(filepath.Join(outDir, "sig", "publisher.pub"), pub, 0644); err != nil {
		return Stats{}, fmt.Errorf("compiler: writing sig/publisher.pub: %w", err)
	}

	files, err := integrity.DiscoverFiles(outDir)
	if err != nil {
		return Stats{}, fmt.Errorf("compiler: discovering shard files: %w", err)
	}
	root, err := integrity.Root(outDir, files)
	if err != nil {
		return Stats{}, fmt.Errorf("compiler: computing integrity root: %w", err)
	}

	manifest := shardsign.NewManifest(timestamp, result.SourceHash, root, files, pub)
	signed, err := shardsign.Sign(manifest, signingKey)
	if err != nil {
		return Stats{}, fmt.Errorf("compiler: signing manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outDir, "manifest.json"), signed.CanonicalJSON, 0644); err != nil {
		return Stats{}, fmt.Errorf("compiler: writing manifest.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "sig", "manifest.sig"), signed.Signature, 0644); err != nil {
		return Stats{}, fmt.Errorf("compiler: writing sig/manifest.sig: %w", err)
	}

	return Stats{
		Entities: len(result.Entities),
		Claims:   len(result.Claims),
		Spans:    len(result.Spans),
	}, nil
}

func writeGraphAndEvidence(outDir string, result *ontology.Result) error {
	sort.Slice(result.Entities, func(i, j int) bool { return result.Entities[i].EntityID < result.Entities[j].EntityID })
	entityCols := []shardwriter.Column{
		{Name: "entity_id", Type: shardwriter.ColString},
		{Name: "namespace", Type: shardwriter.ColString},
		{Name: "label", Type: shardwriter.ColString},
		{Name: "type", Type: shardwriter.ColString},
	}
	var entityRows [][]any
	for _, e := range result.Entities {
		entityRows = append(entityRows, []any{e.EntityID, e.Namespace, e.Label, e.Type})
	}
	if err := shardwriter.WriteTable(filepath.Join(outDir, "graph", "entities.parquet"), entityCols, entityRows); err != nil {
		return fmt.Errorf("compiler: writing entities: %w", err)
	}

	sort.Slice(result.Claims, func(i, j int) bool { return result.Claims[i].ClaimID < result.Claims[j].ClaimID })
	claimCols := []shardwriter.Column{
		{Name: "claim_id", Type: shardwriter.ColString},
		{Name: "subject", Type: shardwriter.ColString},
		{Name: "predicate", Type: shardwriter.ColString},
		{Name: "object", Type: shardwriter.ColString},
		{Name: "object_type", Type: shardwriter.ColString},
		{Name: "tier", Type: shardwriter.ColInt32},
	}
	var claimRows [][]any
	for _, c := range result.Claims {
		claimRows = append(claimRows, []any{c.ClaimID, c.Subject, c.Predicate, c.Object, c.ObjectType, int32(c.Tier)})
	}
	if err := shardwriter.WriteTable(filepath.Join(outDir, "graph", "claims.parquet"), claimCols, claimRows); err != nil {
		return fmt.Errorf("compiler: writing claims: %w", err)
	}

	sort.Slice(result.Provenance, func(i, j int) bool { return result.Provenance[i].ProvenanceID < result.Provenance[j].ProvenanceID })
	provCols := []shardwriter.Column{
		{Name: "provenance_id", Type: shardwriter.ColString},
		{Name: "claim_id", Type: shardwriter.ColString},
		{Name: "span_id", Type: shardwriter.ColString},
		{Name: "source_hash", Type: shardwriter.ColString},
		{Name: "byte_start", Type: shardwriter.ColInt64},
		{Name: "byte_end", Type: shardwriter.ColInt64},
	}
	var provRows [][]any
	for _, p := range result.Provenance {
		provRows = append(provRows, []any{p.ProvenanceID, p.ClaimID, p.SpanID, p.SourceHash, int64(p.ByteStart), int64(p.ByteEnd)})
	}
	if err := shardwriter.WriteTable(filepath.Join(outDir, "graph", "provenance.parquet"), provCols, provRows); err != nil {
		return fmt.Errorf("compiler: writing provenance: %w", err)
	}

	sort.Slice(result.Spans, func(i, j int) bool { return result.Spans[i].SpanID < result.Spans[j].SpanID })
	spanCols := []shardwriter.Column{
		{Name: "span_id", Type: shardwriter.ColString},
		{Name: "source_hash", Type: shardwriter.ColString},
		{Name: "byte_start", Type: shardwriter.ColInt64},
		{Name: "byte_end", Type: shardwriter.ColInt64},
		{Name: "text", Type: shardwriter.ColString},
	}
	var spanRows [][]any
	for _, s := range result.Spans {
		spanRows = append(spanRows, []any{s.SpanID, s.SourceHash, int64(s.ByteStart), int64(s.ByteEnd), s.Text})
	}
	if err := shardwriter.WriteTable(filepath.Join(outDir, "evidence", "spans.parquet"), spanCols, spanRows); err != nil {
		return fmt.Errorf("compiler: writing spans: %w", err)
	}

	if len(result.Streams) > 0 {
		streamCols := []shardwriter.Column{
			{Name: "frame_id", Type: shardwriter.ColInt32},
			{Name: "stream", Type: shardwriter.ColString},
			{Name: "file", Type: shardwriter.ColString},
			{Name: "offset", Type: shardwriter.ColInt64},
			{Name: "length", Type: shardwriter.ColInt32},
			{Name: "status", Type: shardwriter.ColString},
			{Name: "content_hash", Type: shardwriter.ColString},
		}
		var streamRows [][]any
		for _, s := range result.Streams {
			streamRows = append(streamRows, []any{s.FrameID, s.Stream, s.File, s.Offset, s.Length, s.Status, s.ContentHash})
		}
		if err := shardwriter.WriteTable(filepath.Join(outDir, "evidence", "streams.parquet"), streamCols, streamRows); err != nil {
			return fmt.Errorf("compiler: writing streams: %w", err)
		}
	}

	return nil
}

// SourceHashHex is a small helper exposed for callers (e.g. the CLI) that
// want to report the raw events.jsonl hash independent of a full compile.
func SourceHashHex(eventsPath string) (string, error) {
	data, err := os.ReadFile(eventsPath)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
