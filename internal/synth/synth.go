// Package synth renders the fixed four-layer patch into a complete stereo 16-bit WAV asset.
package synth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/assetutil"
	"github.com/book-expert/synth-service/internal/synth/wave"
)

// cancellationInterval is how many frames are rendered between context checks.
const cancellationInterval = 44100

// pcgIncrement is the second PCG seed word derived from the user seed.
const pcgIncrement = 0x9e3779b97f4a7c15

var (
	// ErrInvalidDuration indicates a non-positive or non-finite duration.
	ErrInvalidDuration = errors.New("duration must be a finite positive number of seconds")
	// ErrAllocationLimitExceeded indicates the asset would exceed MaxAssetBytes.
	ErrAllocationLimitExceeded = errors.New("requested asset exceeds the allocation ceiling")
	// ErrAllocationFailed indicates the runtime could not reserve the asset buffer.
	ErrAllocationFailed = errors.New("failed to allocate asset buffer")
)

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSeed fixes the noise source so that identical durations produce identical bytes.
func WithSeed(seed uint64) Option {
	return func(s *Synthesizer) {
		s.seed = &seed
	}
}

// WithLogger reports each rendered asset to log.
func WithLogger(log *logger.Logger) Option {
	return func(s *Synthesizer) {
		s.log = log
	}
}

// Synthesizer renders WAV assets. It holds no mutable state and is safe for concurrent use.
type Synthesizer struct {
	format   wave.Format
	seed     *uint64
	log      *logger.Logger
	allocate func(size int) ([]byte, error)
}

// New creates a Synthesizer producing wave.CD assets.
func New(opts ...Option) *Synthesizer {
	synthesizer := &Synthesizer{
		format:   wave.CD,
		seed:     nil,
		log:      nil,
		allocate: allocateBuffer,
	}

	for _, opt := range opts {
		opt(synthesizer)
	}

	return synthesizer
}

// Format returns the PCM layout of rendered assets.
func (s *Synthesizer) Format() wave.Format {
	return s.format
}

// Synthesize renders durationSeconds of audio and returns the encoded header and payload.
// It fails before allocating when the duration is invalid or the asset would exceed
// MaxAssetBytes, and it stops between seconds of audio when ctx is cancelled.
func (s *Synthesizer) Synthesize(ctx context.Context, durationSeconds float64) ([]byte, error) {
	plan, err := PlanAsset(s.format, durationSeconds)
	if err != nil {
		return nil, err
	}

	asset, err := s.allocate(plan.TotalSize)
	if err != nil {
		return nil, err
	}

	header := wave.EncodeHeader(s.format, plan.DataSize)
	copy(asset, header[:])

	renderErr := s.render(ctx, asset[wave.HeaderSize:], plan.Frames)
	if renderErr != nil {
		return nil, renderErr
	}

	if s.log != nil {
		s.log.Info("Synthesized %s of audio: %d frames, %s",
			assetutil.FormatDuration(durationSeconds), plan.Frames, assetutil.FormatFileSize(int64(plan.TotalSize)))
	}

	return asset, nil
}

func (s *Synthesizer) render(ctx context.Context, payload []byte, frames int) error {
	noise := s.noiseSource()
	sampleRate := float64(s.format.SampleRate)
	blockAlign := int(s.format.BlockAlign())
	bytesPerSample := int(s.format.BytesPerSample())
	channels := int(s.format.Channels)

	for frame := range frames {
		if frame%cancellationInterval == 0 {
			ctxErr := ctx.Err()
			if ctxErr != nil {
				return fmt.Errorf("synthesis cancelled at frame %d of %d: %w", frame, frames, ctxErr)
			}
		}

		t := float64(frame) / sampleRate
		sample := uint16(quantize(signal(t, noise.Float64()*2-1)))

		offset := frame * blockAlign
		for channel := range channels {
			binary.LittleEndian.PutUint16(payload[offset+channel*bytesPerSample:], sample)
		}
	}

	return nil
}

func (s *Synthesizer) noiseSource() *rand.Rand {
	seed := rand.Uint64()
	if s.seed != nil {
		seed = *s.seed
	}

	return rand.New(rand.NewPCG(seed, seed^pcgIncrement))
}
