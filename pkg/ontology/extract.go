package ontology

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Mindburn-Labs/axm/pkg/canonid"
	"github.com/Mindburn-Labs/axm/pkg/judge"
)

// event is the subset of an events.jsonl record this extractor cares
// about. Unrecognized fields are ignored; unrecognized evt values are
// skipped entirely (forward compatibility).
type event struct {
	Evt     string `json:"evt"`
	RobotID string `json:"robot_id"`
	Surface string `json:"surface"`
	Action  string `json:"action"`
	Value   any    `json:"value"`

	StreamRefs *streamRefs `json:"stream_refs"`
}

type streamRefs struct {
	Latents *streamRef `json:"latents"`
}

type streamRef struct {
	Offset int64 `json:"offset"`
	Length int   `json:"length"`
}

// extractor holds the running state of a single events.jsonl pass.
type extractor struct {
	logger *slog.Logger

	entityCache map[string]bool
	entities    []Entity
	claims      []Claim
	spans       map[string]Span // deduplicated by span_id
	provenance  []Provenance

	sourceHash string
}

// Extract reads capsuleDir/events.jsonl once, minting entities/claims/
// spans/provenance for every recognized event, then — if cam_latents.bin
// is present — re-reads the log a second time to produce StreamEvidence
// rows via the Strict Judge.
func Extract(capsuleDir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	eventsPath := filepath.Join(capsuleDir, "events.jsonl")
	raw, err := os.ReadFile(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("ontology: reading events.jsonl: %w", err)
	}
	sum := sha256.Sum256(raw)
	sourceHash := hex.EncodeToString(sum[:])

	ex := &extractor{
		logger:      logger,
		entityCache: make(map[string]bool),
		spans:       make(map[string]Span),
		sourceHash:  sourceHash,
	}

	lines := bytes.Split(raw, []byte("\n"))
	cursor := 0
	for _, line := range lines {
		if len(line) == 0 {
			cursor++ // trailing/empty newline
			continue
		}

		start := cursor
		end := cursor + len(line)
		cursor = end + 1

		var evt event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("ontology: parsing event at byte %d: %w", start, err)
		}

		if err := ex.dispatch(evt, start, end, string(line)); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Entities:   ex.entities,
		Claims:     ex.claims,
		Provenance: ex.provenance,
		SourceHash: sourceHash,
	}
	for _, s := range ex.spans {
		result.Spans = append(result.Spans, s)
	}

	if streams, err := ex.extractStreamEvidence(capsuleDir); err != nil {
		return nil, err
	} else {
		result.Streams = streams
	}

	return result, nil
}

func (ex *extractor) addEntity(label, typ string) string {
	id := canonid.EntityID(Namespace, label)
	if !ex.entityCache[id] {
		ex.entityCache[id] = true
		ex.entities = append(ex.entities, Entity{
			EntityID:  id,
			Namespace: Namespace,
			Label:     label,
			Type:      typ,
		})
	}
	return id
}

// addClaimWithSpan mints a claim, its span, and its provenance row. When
// objectType is "entity", obj must already be a resolved entity ID — the
// ID functions canonicalize literals but never resolve entity references
// themselves.
func (ex *extractor) addClaimWithSpan(subjectID, predicate, obj, objectType string, tier int, start, end int, text string) error {
	if tier < TierAxiom || tier > TierMax {
		return fmt.Errorf("%w: %d", ErrTierOutOfRange, tier)
	}
	claimID := canonid.ClaimID(subjectID, predicate, obj, objectType)
	spanID := canonid.SpanID(ex.sourceHash, start, end, text)
	provID := canonid.ProvenanceID(claimID, spanID)

	objClean := obj
	if objectType != "entity" {
		objClean = canonid.Canonicalize(obj)
	}

	ex.claims = append(ex.claims, Claim{
		ClaimID:    claimID,
		Subject:    subjectID,
		Predicate:  predicate,
		Object:     objClean,
		ObjectType: objectType,
		Tier:       tier,
	})
	ex.spans[spanID] = Span{
		SpanID:     spanID,
		SourceHash: ex.sourceHash,
		ByteStart:  start,
		ByteEnd:    end,
		Text:       text,
	}
	ex.provenance = append(ex.provenance, Provenance{
		ProvenanceID: provID,
		ClaimID:      claimID,
		SpanID:       spanID,
		SourceHash:   ex.sourceHash,
		ByteStart:    start,
		ByteEnd:      end,
	})
	return nil
}

func (ex *extractor) dispatch(evt event, start, end int, text string) error {
	switch evt.Evt {
	case "wheel_slip":
		robotID := evt.RobotID
		if robotID == "" {
			robotID = "robot-001"
		}
		rid := ex.addEntity(robotID, "robot")
		slipID := ex.addEntity("wheel_slip", "event")

		if err := ex.addClaimWithSpan(rid, "observed", slipID, "entity", TierObservation, start, end, text); err != nil {
			return err
		}
		return ex.addClaimWithSpan(slipID, "on_surface", evt.Surface, "literal:string", TierObservation, start, end, text)

	case "recovery_action":
		actionID := ex.addEntity(evt.Action, "action")
		slipID := ex.addEntity("wheel_slip", "event")

		if err := ex.addClaimWithSpan(slipID, "resolved_by", actionID, "entity", TierSafetyRule, start, end, text); err != nil {
			return err
		}
		return ex.addClaimWithSpan(actionID, "applied_value", stringifyValue(evt.Value), "literal:string", TierObservation, start, end, text)

	default:
		// Forward-compatible: unrecognized event kinds are ignored.
		return nil
	}
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// extractStreamEvidence re-reads events.jsonl a second time (a separate
// pass from the ontology pass above) to verify each frame's latent record
// and, where present, its residual counterpart.
func (ex *extractor) extractStreamEvidence(capsuleDir string) ([]StreamEvidence, error) {
	latentsPath := filepath.Join(capsuleDir, "cam_latents.bin")
	if _, err := os.Stat(latentsPath); err != nil {
		return nil, nil
	}

	j, err := judge.New(capsuleDir, judge.WithLogger(ex.logger))
	if err != nil {
		return nil, fmt.Errorf("ontology: opening strict judge: %w", err)
	}
	defer j.Close()

	raw, err := os.ReadFile(filepath.Join(capsuleDir, "events.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("ontology: re-reading events.jsonl: %w", err)
	}

	var evidence []StreamEvidence
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var evt struct {
			FrameID    int32       `json:"frame_id"`
			StreamRefs *streamRefs `json:"stream_refs"`
		}
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("ontology: parsing event for stream evidence: %w", err)
		}
		if evt.StreamRefs == nil || evt.StreamRefs.Latents == nil {
			continue
		}

		ref := evt.StreamRefs.Latents
		status, hash := j.VerifyLatent(ref.Offset, ref.Length, uint32(evt.FrameID))
		if !containsStatus(status, judge.StatusVerified) {
			return nil, fmt.Errorf("ontology: FATAL frame %d: %s", evt.FrameID, status)
		}

		evidence = append(evidence, StreamEvidence{
			FrameID:     evt.FrameID,
			Stream:      "latents",
			File:        "cam_latents.bin",
			Offset:      ref.Offset,
			Length:      int32(ref.Length),
			Status:      judge.StatusVerified,
			ContentHash: hash,
		})
	}

	// Every frame the residual scan indexed gets an evidence row, whether
	// or not the event log references it.
	for _, fid := range j.ResidualFrames() {
		res, _ := j.ResidualFor(fid)
		evidence = append(evidence, StreamEvidence{
			FrameID:     int32(fid),
			Stream:      "residuals",
			File:        "cam_residuals.bin",
			Offset:      res.Offset,
			Length:      int32(res.Length),
			Status:      res.Status,
			ContentHash: res.ContentHash,
		})
	}

	return evidence, nil
}

func containsStatus(full, code string) bool {
	return len(full) >= len(code) && full[:len(code)] == code
}
