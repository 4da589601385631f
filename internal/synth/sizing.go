package synth

import (
	"fmt"
	"math"

	"github.com/book-expert/synth-service/internal/synth/wave"
)

// MaxAssetBytes is the largest encoded asset, header included, that Synthesize will reserve.
const MaxAssetBytes = 1 << 30

// Plan is the sizing of one asset, derived from a single integer frame count.
type Plan struct {
	Frames    int
	DataSize  uint32
	TotalSize int
}

// PlanAsset computes the frame count and byte sizes for a duration in the given format.
// It rejects invalid durations and sizes above MaxAssetBytes without allocating anything.
func PlanAsset(format wave.Format, durationSeconds float64) (Plan, error) {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds <= 0 {
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidDuration, durationSeconds)
	}

	frames := math.Floor(durationSeconds * float64(format.SampleRate))
	total := float64(wave.HeaderSize) + frames*float64(format.BlockAlign())

	if total > MaxAssetBytes {
		return Plan{}, fmt.Errorf(
			"%w: %.0f bytes requested for %.2fs, ceiling is %d",
			ErrAllocationLimitExceeded,
			total,
			durationSeconds,
			MaxAssetBytes,
		)
	}

	frameCount := int(frames)
	dataSize := frameCount * int(format.BlockAlign())

	return Plan{
		Frames:    frameCount,
		DataSize:  uint32(dataSize),
		TotalSize: wave.HeaderSize + dataSize,
	}, nil
}

// allocateBuffer reserves size bytes, reporting a runtime allocation panic as ErrAllocationFailed.
func allocateBuffer(size int) (buffer []byte, err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			buffer = nil
			err = fmt.Errorf("%w: %d bytes: %v", ErrAllocationFailed, size, recovered)
		}
	}()

	return make([]byte, size), nil
}
