// Package judge implements strict offset-math verification of a Capsule's
// binary latent/residual sensor streams.
//
// A latent file (cam_latents.bin) is fixed-stride: record N must begin at
// exactly FileHeaderLen + N*LatentRecLen. Any claimed offset that disagrees
// with that arithmetic is treated as a tamper signal, not a warning. The
// residual file (cam_residuals.bin) has no such guarantee — records vary in
// length and the stream may be corrupted — so scanning it tolerates garbage
// and corrupt headers by resynchronizing on the record magic, bounded by
// DefaultMaxResyncBytes so a hostile file cannot force unbounded work.
package judge

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Mindburn-Labs/axm/pkg/protocol"
)

// Status strings returned by VerifyLatent. These are deliberately verbose
// (they embed the claimed/expected values) but always carry one of the
// bare codes below as a substring, so callers that only care about the
// category can match on it.
const (
	StatusVerified       = "VERIFIED"
	StatusOffsetMismatch = "OFFSET_MISMATCH"
	StatusLenMismatch    = "LEN_MISMATCH"
	StatusBadMagic       = "BAD_MAGIC"
	StatusBadVersion     = "BAD_VERSION"
	StatusDrift          = "DRIFT"
	StatusBadDim         = "BAD_DIM"
	StatusTornWrite      = "TORN_WRITE"
	StatusEOF            = "EOF"
)

// ResidualEntry describes one successfully-scanned residual record.
type ResidualEntry struct {
	Offset      int64
	Length      int
	ContentHash string
	Status      string
}

// ScanStats summarizes a residual-stream scan for diagnostics.
type ScanStats struct {
	Records        int
	Resyncs        int
	GarbageBytes   int64
	CorruptHeaders int
	Truncated      bool
}

// StrictJudge holds open handles and scan state for one Capsule's binary
// evidence streams. Construct with New; callers must call Close when done.
type StrictJudge struct {
	logger *slog.Logger

	latentFile *os.File
	hasLatents bool

	residualIndex map[uint32]ResidualEntry
	stats         ScanStats
}

// Option configures a StrictJudge.
type Option func(*StrictJudge)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(j *StrictJudge) { j.logger = l }
}

// New opens the binary streams under capsuleDir and eagerly scans the
// residual stream (if present). The latent file, if present, is opened and
// its 4-byte file header validated; a missing or malformed latent header is
// fatal — latent records participate in claim provenance, so a corrupted
// latent container cannot be worked around.
func New(capsuleDir string, opts ...Option) (*StrictJudge, error) {
	j := &StrictJudge{
		logger:        slog.Default(),
		residualIndex: make(map[uint32]ResidualEntry),
	}
	for _, o := range opts {
		o(j)
	}

	if err := j.scanResiduals(filepath.Join(capsuleDir, "cam_residuals.bin")); err != nil {
		return nil, err
	}
	if err := j.openLatents(filepath.Join(capsuleDir, "cam_latents.bin")); err != nil {
		return nil, err
	}
	return j, nil
}

// Close releases the open latent file handle, if any.
func (j *StrictJudge) Close() error {
	if j.latentFile != nil {
		return j.latentFile.Close()
	}
	return nil
}

// Stats returns the accumulated residual-scan statistics.
func (j *StrictJudge) Stats() ScanStats { return j.stats }

// ResidualFor returns the scanned residual entry for frameID, if any.
func (j *StrictJudge) ResidualFor(frameID uint32) (ResidualEntry, bool) {
	e, ok := j.residualIndex[frameID]
	return e, ok
}

// ResidualFrames returns every frame ID in the residual index in
// ascending order.
func (j *StrictJudge) ResidualFrames() []uint32 {
	frames := make([]uint32, 0, len(j.residualIndex))
	for fid := range j.residualIndex {
		frames = append(frames, fid)
	}
	sort.Slice(frames, func(a, b int) bool { return frames[a] < frames[b] })
	return frames
}

func (j *StrictJudge) openLatents(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("judge: opening latent file: %w", err)
	}

	hdr := make([]byte, protocol.FileHeaderLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		f.Close()
		return fmt.Errorf("judge: FATAL: invalid latent file header: %w", err)
	}
	if [4]byte(hdr) != protocol.MagicLatentFile {
		f.Close()
		return fmt.Errorf("judge: FATAL: invalid latent file header")
	}

	j.latentFile = f
	j.hasLatents = true
	return nil
}

// VerifyLatent checks a claimed (offset, length) pair for a latent record
// against the fixed-stride layout, then reads and hashes the record payload.
// It returns a status string (see the Status* constants) and, only on
// VERIFIED, the SHA-256 hex digest of the record's payload.
func (j *StrictJudge) VerifyLatent(claimedOffset int64, claimedLen int, expectedFrameID uint32) (status string, contentHash string) {
	if !j.hasLatents {
		return fmt.Sprintf("%s (no latent file)", StatusEOF), ""
	}

	mathOffset := protocol.MathOffset(expectedFrameID)
	if claimedOffset != mathOffset {
		return fmt.Sprintf("%s (Claimed %d != Math %d)", StatusOffsetMismatch, claimedOffset, mathOffset), ""
	}
	if claimedLen != protocol.LatentRecLen {
		return fmt.Sprintf("%s (Claimed %d != Expected %d)", StatusLenMismatch, claimedLen, protocol.LatentRecLen), ""
	}

	hdr := make([]byte, protocol.RecHeaderLen)
	if _, err := j.latentFile.ReadAt(hdr, claimedOffset); err != nil {
		return fmt.Sprintf("%s (Header read at %d: %v)", StatusEOF, claimedOffset, err), ""
	}

	magic := [4]byte(hdr[0:4])
	if magic != protocol.MagicLatentRec {
		return fmt.Sprintf("%s (Found %x)", StatusBadMagic, magic), ""
	}
	version := hdr[4]
	if version != protocol.Version {
		return fmt.Sprintf("%s (Found %d, Exp %d)", StatusBadVersion, version, protocol.Version), ""
	}
	fid := binary.LittleEndian.Uint32(hdr[5:9])
	if fid != expectedFrameID {
		return fmt.Sprintf("%s (Found %d, Exp %d)", StatusDrift, fid, expectedFrameID), ""
	}
	length := binary.LittleEndian.Uint32(hdr[9:13])
	if int(length) != protocol.LatentDim {
		return fmt.Sprintf("%s (Found %d, Exp %d)", StatusBadDim, length, protocol.LatentDim), ""
	}

	payload := make([]byte, protocol.LatentDim)
	if _, err := j.latentFile.ReadAt(payload, claimedOffset+int64(protocol.RecHeaderLen)); err != nil {
		return fmt.Sprintf("%s (Payload read at %d: %v)", StatusTornWrite, claimedOffset, err), ""
	}

	sum := sha256.Sum256(payload)
	return StatusVerified, hex.EncodeToString(sum[:])
}

// scanResidualHeader is the 13-byte record header decoded from the wire.
type scanResidualHeader struct {
	magic   [4]byte
	version uint8
	frameID uint32
	length  uint32
}

func decodeHeader(b []byte) scanResidualHeader {
	return scanResidualHeader{
		magic:   [4]byte(b[0:4]),
		version: b[4],
		frameID: binary.LittleEndian.Uint32(b[5:9]),
		length:  binary.LittleEndian.Uint32(b[9:13]),
	}
}

func (j *StrictJudge) scanResiduals(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("judge: opening residual file: %w", err)
	}
	defer f.Close()

	pos := int64(0)
	hdrBuf := make([]byte, protocol.RecHeaderLen)

	for {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return fmt.Errorf("judge: seeking residual stream: %w", err)
		}
		startOff := pos

		n, err := io.ReadFull(f, hdrBuf)
		if n == 0 {
			break // clean EOF
		}
		if n < protocol.RecHeaderLen {
			j.logger.Warn("truncated residual header", "offset", startOff, "bytes", n)
			j.stats.Truncated = true
			break
		}
		if err != nil {
			return fmt.Errorf("judge: reading residual header: %w", err)
		}

		hdr := decodeHeader(hdrBuf)
		if hdr.magic != protocol.MagicResidRec {
			j.stats.CorruptHeaders++
			j.logger.Warn("corrupt residual header, resynchronizing", "offset", startOff)
			nextOff, rerr := j.resyncToMagic(f, startOff+1)
			if rerr != nil {
				j.logger.Warn("resync failed, stopping residual scan", "offset", startOff)
				break
			}
			j.stats.GarbageBytes += nextOff - startOff
			j.stats.Resyncs++
			if j.stats.GarbageBytes > protocol.DefaultMaxGarbageBytes {
				j.logger.Warn("residual garbage threshold exceeded", "total_garbage", j.stats.GarbageBytes)
			}
			pos = nextOff
			continue
		}

		if hdr.version != protocol.Version {
			return fmt.Errorf("judge: FATAL: residual record at %d has unsupported version %d", startOff, hdr.version)
		}
		if hdr.length > protocol.DefaultMaxResidualSize {
			return fmt.Errorf("judge: FATAL: residual record at %d declares oversized length %d", startOff, hdr.length)
		}

		payload := make([]byte, hdr.length)
		pn, perr := io.ReadFull(f, payload)
		if perr != nil {
			j.logger.Warn("torn residual payload", "offset", startOff, "read", pn, "want", hdr.length)
			break
		}

		sum := sha256.Sum256(payload)
		j.residualIndex[hdr.frameID] = ResidualEntry{
			Offset:      startOff,
			Length:      protocol.RecHeaderLen + int(hdr.length),
			ContentHash: hex.EncodeToString(sum[:]),
			Status:      StatusVerified,
		}
		j.stats.Records++
		pos = startOff + int64(protocol.RecHeaderLen) + int64(hdr.length)
	}

	return nil
}

// resyncToMagic scans forward from startOff in bounded chunks looking for
// the residual record magic, returning its absolute offset. Chunk reads
// overlap by len(magic)-1 bytes so a magic straddling a chunk boundary is
// never missed.
func (j *StrictJudge) resyncToMagic(f *os.File, startOff int64) (int64, error) {
	const overlap = 3 // len(magic) - 1

	if _, err := f.Seek(startOff, io.SeekStart); err != nil {
		return 0, err
	}

	var prevTail []byte
	scanned := int64(0)
	pos := startOff

	for scanned < protocol.DefaultMaxResyncBytes {
		chunk := make([]byte, protocol.ResyncChunkSize)
		n, err := f.Read(chunk)
		if n == 0 {
			return 0, io.EOF
		}
		chunk = chunk[:n]

		hay := append(append([]byte{}, prevTail...), chunk...)
		if idx := indexMagic(hay, protocol.MagicResidRec); idx >= 0 {
			return pos - int64(len(prevTail)) + int64(idx), nil
		}

		scanned += int64(n)
		pos += int64(n)

		if len(chunk) >= overlap {
			prevTail = append([]byte{}, chunk[len(chunk)-overlap:]...)
		} else {
			prevTail = append(append([]byte{}, prevTail...), chunk...)
			if len(prevTail) > overlap {
				prevTail = prevTail[len(prevTail)-overlap:]
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, err
		}
	}
	return 0, errors.New("judge: resync budget exceeded")
}

func indexMagic(hay []byte, magic [4]byte) int {
	m := magic[:]
	for i := 0; i+len(m) <= len(hay); i++ {
		if hay[i] == m[0] && string(hay[i:i+len(m)]) == string(m) {
			return i
		}
	}
	return -1
}
