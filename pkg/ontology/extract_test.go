package ontology

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/axm/pkg/protocol"
)

func writeEvents(t *testing.T, dir string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(content), 0644))
}

func TestExtractWheelSlipAndRecovery(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir,
		`{"evt":"wheel_slip","robot_id":"robot-001","surface":"ice"}`,
		`{"evt":"recovery_action","action":"reduce_torque","value":0.4}`,
	)

	result, err := Extract(dir, nil)
	require.NoError(t, err)

	assert.Len(t, result.Entities, 3) // robot, wheel_slip event, action
	assert.Len(t, result.Claims, 4)
	assert.Len(t, result.Provenance, 4)
	assert.NotEmpty(t, result.Spans)
	assert.Empty(t, result.Streams)

	// IDs are deterministic across a second run.
	again, err := Extract(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, result.Entities[0].EntityID, again.Entities[0].EntityID)
	assert.Equal(t, result.Claims[0].ClaimID, again.Claims[0].ClaimID)
}

func TestExtractIgnoresUnknownEvents(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, `{"evt":"telemetry_ping","value":1}`)

	result, err := Extract(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Claims)
}

func TestExtractSpanBytesMatchSourceSlice(t *testing.T) {
	dir := t.TempDir()
	line := `{"evt":"wheel_slip","robot_id":"r","surface":"mud"}`
	writeEvents(t, dir, line)

	raw, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)

	result, err := Extract(dir, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Spans)

	for _, s := range result.Spans {
		assert.Equal(t, string(raw[s.ByteStart:s.ByteEnd]), s.Text)
	}
}

func TestExtractNoStreamsWhenNoLatentFile(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, `{"evt":"wheel_slip","robot_id":"r","surface":"mud"}`)

	result, err := Extract(dir, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Streams)
}

func buildStreams(t *testing.T, dir string, frames int, residualFrames []uint32) {
	t.Helper()

	lf, err := os.Create(filepath.Join(dir, "cam_latents.bin"))
	require.NoError(t, err)
	_, err = lf.Write(protocol.MagicLatentFile[:])
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		rec := make([]byte, protocol.LatentRecLen)
		copy(rec[0:4], protocol.MagicLatentRec[:])
		rec[4] = protocol.Version
		binary.LittleEndian.PutUint32(rec[5:9], uint32(i))
		binary.LittleEndian.PutUint32(rec[9:13], protocol.LatentDim)
		_, err = lf.Write(rec)
		require.NoError(t, err)
	}
	require.NoError(t, lf.Close())

	rf, err := os.Create(filepath.Join(dir, "cam_residuals.bin"))
	require.NoError(t, err)
	for _, fid := range residualFrames {
		payload := []byte{byte(fid), 0x01, 0x02}
		hdr := make([]byte, protocol.RecHeaderLen)
		copy(hdr[0:4], protocol.MagicResidRec[:])
		hdr[4] = protocol.Version
		binary.LittleEndian.PutUint32(hdr[5:9], fid)
		binary.LittleEndian.PutUint32(hdr[9:13], uint32(len(payload)))
		_, err = rf.Write(hdr)
		require.NoError(t, err)
		_, err = rf.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())
}

func frameLine(frameID int) string {
	offset := protocol.MathOffset(uint32(frameID))
	return fmt.Sprintf(
		`{"evt":"frame","frame_id":%d,"stream_refs":{"latents":{"file":"cam_latents.bin","offset":%d,"length":%d}}}`,
		frameID, offset, protocol.LatentRecLen,
	)
}

func TestExtractStreamEvidence(t *testing.T) {
	dir := t.TempDir()
	buildStreams(t, dir, 3, []uint32{1})
	writeEvents(t, dir,
		frameLine(0),
		frameLine(1),
		frameLine(2),
		`{"evt":"wheel_slip","robot_id":"robot-001","surface":"ice"}`,
	)

	result, err := Extract(dir, nil)
	require.NoError(t, err)

	var latents, residuals []StreamEvidence
	for _, s := range result.Streams {
		switch s.Stream {
		case "latents":
			latents = append(latents, s)
		case "residuals":
			residuals = append(residuals, s)
		}
	}
	require.Len(t, latents, 3)
	require.Len(t, residuals, 1)

	for _, s := range latents {
		assert.Equal(t, protocol.MathOffset(uint32(s.FrameID)), s.Offset)
		assert.Equal(t, int32(protocol.LatentRecLen), s.Length)
		assert.Equal(t, "VERIFIED", s.Status)
		assert.NotEmpty(t, s.ContentHash)
	}
	assert.Equal(t, int32(1), residuals[0].FrameID)
	assert.Equal(t, "cam_residuals.bin", residuals[0].File)
}

func TestExtractResidualRowsCoverUnreferencedFrames(t *testing.T) {
	dir := t.TempDir()
	// Residual for frame 2 exists but no event references any stream.
	buildStreams(t, dir, 3, []uint32{2})
	writeEvents(t, dir, `{"evt":"wheel_slip","robot_id":"robot-001","surface":"ice"}`)

	result, err := Extract(dir, nil)
	require.NoError(t, err)
	require.Len(t, result.Streams, 1)
	assert.Equal(t, "residuals", result.Streams[0].Stream)
	assert.Equal(t, int32(2), result.Streams[0].FrameID)
}

func TestExtractTamperedLatentIsFatal(t *testing.T) {
	dir := t.TempDir()
	buildStreams(t, dir, 2, nil)

	// Flip a bit inside the first latent record's frame_id field.
	path := filepath.Join(dir, "cam_latents.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[protocol.FileHeaderLen+8] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0644))

	writeEvents(t, dir, frameLine(0), frameLine(1))

	_, err = Extract(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FATAL")
}

func TestAddClaimRejectsTierOutOfRange(t *testing.T) {
	ex := &extractor{entityCache: map[string]bool{}, spans: map[string]Span{}, sourceHash: "h"}
	err := ex.addClaimWithSpan("e_x", "predicate", "obj", "literal:string", TierMax+1, 0, 1, "text")
	require.ErrorIs(t, err, ErrTierOutOfRange)
}
