package upload

import (
	"fmt"

	"github.com/drivegate/drivegate"
)

const (
	// MinChunkSize is the smallest payload accepted for a non-final chunk.
	MinChunkSize = 8 * 1024 * 1024

	// MaxChunkSize is the largest payload accepted for any chunk, final or not.
	MaxChunkSize = 10 * 1024 * 1024
)

// ValidateChunk enforces the chunk-size policy against a parsed content range
// and the actual payload length. It is pure and never contacts the upstream.
//
// An empty payload always fails, independent of the declared range. The
// payload length must match the range span exactly. Non-final chunks must fall
// within [MinChunkSize, MaxChunkSize]; a final chunk (total known and
// end+1 == total) is exempt from the minimum but not the maximum.
func ValidateChunk(rng drivegate.ContentRange, payloadLen int64) error {
	if payloadLen == 0 {
		return drivegate.ErrEmptyChunk
	}
	if payloadLen != rng.ChunkSize() {
		return fmt.Errorf("%w: declared %d bytes, received %d",
			drivegate.ErrSizeMismatch, rng.ChunkSize(), payloadLen)
	}
	if payloadLen > MaxChunkSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", drivegate.ErrChunkTooLarge, payloadLen, MaxChunkSize)
	}
	if !rng.IsFinal() && payloadLen < MinChunkSize {
		return fmt.Errorf("%w: %d bytes below %d for a non-final chunk",
			drivegate.ErrChunkTooSmall, payloadLen, MinChunkSize)
	}
	return nil
}
