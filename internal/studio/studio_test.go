// Package studio_test tests project rendering.
package studio_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/core"
	"github.com/book-expert/synth-service/internal/studio"
	"github.com/book-expert/synth-service/internal/synth"
	"github.com/book-expert/synth-service/internal/synth/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errMockUpload     = errors.New("mock upload error")
	errMockSynthesize = errors.New("mock synthesize error")
)

// memoryStore is an in-memory core.ObjectStore.
type memoryStore struct {
	mu               sync.Mutex
	objects          map[string][]byte
	meta             map[string]core.AssetMetadata
	uploadShouldFail bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		mu:               sync.Mutex{},
		objects:          map[string][]byte{},
		meta:             map[string]core.AssetMetadata{},
		uploadShouldFail: false,
	}
}

func (m *memoryStore) Upload(_ context.Context, key string, data []byte, meta core.AssetMetadata) error {
	if m.uploadShouldFail {
		return errMockUpload
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = data
	m.meta[key] = meta

	return nil
}

func (m *memoryStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.objects[key], nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	delete(m.meta, key)

	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}

// flakySynthesizer fails on its failOn-th call and delegates otherwise.
type flakySynthesizer struct {
	delegate core.Synthesizer
	calls    atomic.Int32
	failOn   int32
}

func (f *flakySynthesizer) Synthesize(ctx context.Context, durationSeconds float64) ([]byte, error) {
	if f.calls.Add(1) == f.failOn {
		return nil, errMockSynthesize
	}

	return f.delegate.Synthesize(ctx, durationSeconds)
}

func newStudio(t *testing.T, synthesizer core.Synthesizer, store core.ObjectStore) *studio.Studio {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "studio-test.log")
	require.NoError(t, err)

	return studio.New(synthesizer, wave.CD, store, testLogger, 2, 8)
}

func TestRender_Single(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	subject := newStudio(t, synth.New(synth.WithSeed(5)), store)
	project := studio.NewProject("Night Drive", core.ModeSingle, 9, 0.25)

	require.Equal(t, 1, project.TrackCount)
	require.Equal(t, core.StatusPending, project.Status)

	rendered, err := subject.Render(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, rendered.Status)
	require.Len(t, rendered.Tracks, 1)

	track := rendered.Tracks[0]
	assert.Equal(t, "Night Drive", track.Title)
	assert.Equal(t, project.ID+"/"+track.ID+".wav", track.AudioKey)
	assert.Equal(t, wave.HeaderSize+11025*4, track.SizeBytes)

	asset, err := store.Download(context.Background(), track.AudioKey)
	require.NoError(t, err)
	assert.Len(t, asset, track.SizeBytes)

	meta := store.meta[track.AudioKey]
	assert.Equal(t, "audio/wav", meta.ContentType)
	assert.InDelta(t, 0.25, meta.DurationSeconds, 1e-9)
	assert.Equal(t, uint32(44100), meta.SampleRate)
}

func TestRender_AlbumTitlesInPartOrder(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	subject := newStudio(t, synth.New(), store)
	project := studio.NewProject("Tides", core.ModeAlbum, 4, 0.1)

	rendered, err := subject.Render(context.Background(), project)
	require.NoError(t, err)

	require.Len(t, rendered.Tracks, 4)

	for index, track := range rendered.Tracks {
		assert.Equal(t, fmt.Sprintf("Tides - Part %d", index+1), track.Title)
		assert.NotEmpty(t, track.AudioKey)
	}

	assert.Equal(t, 4, store.count())
}

func TestRender_ValidationFailures(t *testing.T) {
	t.Parallel()

	subject := newStudio(t, synth.New(), newMemoryStore())

	tests := []struct {
		name    string
		project core.Project
		want    error
	}{
		{"empty title", studio.NewProject("", core.ModeSingle, 1, 1), studio.ErrTitleEmpty},
		{"unknown mode", studio.NewProject("x", core.CreationMode("ep"), 2, 1), studio.ErrUnknownMode},
		{"album too large", studio.NewProject("x", core.ModeAlbum, 9, 1), studio.ErrTrackCount},
		{"album empty", studio.NewProject("x", core.ModeAlbum, 0, 1), studio.ErrTrackCount},
		{"zero duration", studio.NewProject("x", core.ModeSingle, 1, 0), synth.ErrInvalidDuration},
		{"over ceiling", studio.NewProject("x", core.ModeSingle, 1, 7000), synth.ErrAllocationLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rendered, err := subject.Render(context.Background(), tt.project)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, core.StatusFailed, rendered.Status)
			assert.Empty(t, rendered.Tracks)
		})
	}
}

func TestRender_TrackFailureDiscardsUploads(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	synthesizer := &flakySynthesizer{delegate: synth.New(), failOn: 3}
	subject := newStudio(t, synthesizer, store)

	rendered, err := subject.Render(context.Background(), studio.NewProject("Broken", core.ModeAlbum, 3, 0.05))
	require.ErrorIs(t, err, errMockSynthesize)

	assert.Equal(t, core.StatusFailed, rendered.Status)
	assert.Empty(t, rendered.Tracks)
	assert.Zero(t, store.count())
}

func TestRender_UploadFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.uploadShouldFail = true
	subject := newStudio(t, synth.New(), store)

	rendered, err := subject.Render(context.Background(), studio.NewProject("Offline", core.ModeSingle, 1, 0.05))
	require.ErrorIs(t, err, errMockUpload)
	assert.Equal(t, core.StatusFailed, rendered.Status)
}

func TestRender_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	subject := newStudio(t, synth.New(), newMemoryStore())

	rendered, err := subject.Render(ctx, studio.NewProject("Stopped", core.ModeSingle, 1, 1))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.StatusFailed, rendered.Status)
}
