// Package protocol defines the wire-format constants shared by the capsule
// compiler and the shard verifier for the binary sensor streams embedded in
// a Capsule (cam_latents.bin, cam_residuals.bin).
//
// Both streams are self-describing: every record opens with a 13-byte
// header (magic, version, frame_id, length) in little-endian form. Latent
// records are fixed-stride; residual records are variable-length and must
// tolerate corruption via resynchronization on the record magic.
package protocol

// File and record magics. Latent files open with MagicLatentFile; every
// latent record repeats MagicLatentRec, every residual record opens with
// MagicResidRec.
var (
	MagicLatentFile = [4]byte{'A', 'X', 'L', 'F'}
	MagicLatentRec  = [4]byte{'A', 'X', 'L', 'R'}
	MagicResidRec   = [4]byte{'A', 'X', 'R', 'R'}
)

// Version is the only wire version this implementation understands.
const Version = 1

// RecHeaderLen is the encoded size of a record header: 4-byte magic,
// 1-byte version, 4-byte frame_id, 4-byte length (all little-endian).
const RecHeaderLen = 13

// FileHeaderLen is the size of a latent file's leading magic.
const FileHeaderLen = 4

// LatentDim is the number of float32-equivalent bytes carried per latent
// record payload (256 bytes of opaque latent data per frame).
const LatentDim = 256

// LatentRecLen is the fixed on-disk size of one latent record: header plus
// payload. Used for offset-math verification: a latent record for frame N
// must begin at FileHeaderLen + N*LatentRecLen.
const LatentRecLen = RecHeaderLen + LatentDim

// Bounds governing resynchronization and tolerance of a corrupted residual
// stream.
const (
	DefaultMaxResidualSize = 10 * 1024 * 1024
	DefaultMaxResyncBytes  = 64 * 1024 * 1024
	DefaultMaxGarbageBytes = 256 * 1024

	// ResyncChunkSize is the read granularity used while scanning forward
	// for the next record magic after a corrupted header.
	ResyncChunkSize = 64 * 1024
)

// MathOffset returns the expected byte offset of the latent record for
// frameID, per the fixed-stride layout of the latent file.
func MathOffset(frameID uint32) int64 {
	return int64(FileHeaderLen) + int64(frameID)*int64(LatentRecLen)
}
