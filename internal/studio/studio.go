// Package studio renders projects, a single track or an album of tracks, into stored WAV assets.
package studio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/assetutil"
	"github.com/book-expert/synth-service/internal/core"
	"github.com/book-expert/synth-service/internal/synth"
	"github.com/book-expert/synth-service/internal/synth/wave"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	contentTypeWAV    = "audio/wav"
	albumTitleFormat  = "%s - Part %d"
	audioKeyFormat    = "%s/%s.wav"
	errFmtTrackFailed = "track %d of %d failed: %w"
)

var (
	// ErrUnknownMode indicates a creation mode other than single or album.
	ErrUnknownMode = errors.New("unknown creation mode")
	// ErrTrackCount indicates a track count that does not fit the creation mode.
	ErrTrackCount = errors.New("invalid track count")
	// ErrTitleEmpty indicates a project without a title.
	ErrTitleEmpty = errors.New("project title cannot be empty")
)

// Studio synthesizes the tracks of a project and uploads them to an object store.
type Studio struct {
	synthesizer    core.Synthesizer
	format         wave.Format
	store          core.ObjectStore
	log            *logger.Logger
	workers        int
	maxAlbumTracks int
}

// New creates a Studio rendering at most workers tracks at once.
func New(
	synthesizer core.Synthesizer,
	format wave.Format,
	store core.ObjectStore,
	log *logger.Logger,
	workers int,
	maxAlbumTracks int,
) *Studio {
	return &Studio{
		synthesizer:    synthesizer,
		format:         format,
		store:          store,
		log:            log,
		workers:        max(1, workers),
		maxAlbumTracks: maxAlbumTracks,
	}
}

// NewProject returns a pending project with generated ID and resolved track count.
func NewProject(title string, mode core.CreationMode, trackCount int, durationSeconds float64) core.Project {
	if mode == core.ModeSingle {
		trackCount = 1
	}

	return core.Project{
		ID:              uuid.NewString(),
		Title:           title,
		Mode:            mode,
		TrackCount:      trackCount,
		DurationSeconds: durationSeconds,
		Status:          core.StatusPending,
		Tracks:          nil,
		CreatedAt:       time.Now().UTC(),
	}
}

// Validate checks a project before any audio is rendered.
func (s *Studio) Validate(project core.Project) error {
	if project.Title == "" {
		return ErrTitleEmpty
	}

	switch project.Mode {
	case core.ModeSingle:
		if project.TrackCount != 1 {
			return fmt.Errorf("%w: single mode renders exactly one track, got %d", ErrTrackCount, project.TrackCount)
		}
	case core.ModeAlbum:
		if project.TrackCount < 1 || project.TrackCount > s.maxAlbumTracks {
			return fmt.Errorf("%w: album needs 1..%d tracks, got %d", ErrTrackCount, s.maxAlbumTracks, project.TrackCount)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, project.Mode)
	}

	_, planErr := synth.PlanAsset(s.format, project.DurationSeconds)
	if planErr != nil {
		return fmt.Errorf("cannot synthesize project %s: %w", project.ID, planErr)
	}

	return nil
}

// Render synthesizes and uploads every track of project. On success the returned project is
// COMPLETED with tracks in part order. On failure it is FAILED with no tracks, assets already
// uploaded are removed, and the first error is returned. A failing track cancels the others.
func (s *Studio) Render(ctx context.Context, project core.Project) (core.Project, error) {
	validateErr := s.Validate(project)
	if validateErr != nil {
		return failed(project), validateErr
	}

	project.Status = core.StatusProcessing
	s.log.Info("Rendering project %s (%s, %d tracks of %s)",
		project.ID, project.Mode, project.TrackCount, assetutil.FormatDuration(project.DurationSeconds))

	tracks := make([]core.Track, project.TrackCount)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for index := range tracks {
		group.Go(func() error {
			track, err := s.renderTrack(groupCtx, project, index)
			if err != nil {
				return fmt.Errorf(errFmtTrackFailed, index+1, project.TrackCount, err)
			}

			tracks[index] = track
			s.log.Info("Rendered track %d/%d of project %s: %s", index+1, project.TrackCount, project.ID, track.AudioKey)

			return nil
		})
	}

	renderErr := group.Wait()
	if renderErr != nil {
		s.log.Error("Project %s failed: %v", project.ID, renderErr)
		s.discard(context.WithoutCancel(ctx), tracks)

		return failed(project), renderErr
	}

	project.Tracks = tracks
	project.Status = core.StatusCompleted

	return project, nil
}

func (s *Studio) renderTrack(ctx context.Context, project core.Project, index int) (core.Track, error) {
	asset, err := s.synthesizer.Synthesize(ctx, project.DurationSeconds)
	if err != nil {
		return core.Track{}, fmt.Errorf("failed to synthesize audio: %w", err)
	}

	track := core.Track{
		ID:              uuid.NewString(),
		Title:           trackTitle(project, index),
		AudioKey:        "",
		DurationSeconds: project.DurationSeconds,
		SizeBytes:       len(asset),
	}
	track.AudioKey = fmt.Sprintf(audioKeyFormat, project.ID, track.ID)

	uploadErr := s.store.Upload(ctx, track.AudioKey, asset, core.AssetMetadata{
		ContentType:     contentTypeWAV,
		Description:     track.Title,
		DurationSeconds: s.renderedSeconds(project.DurationSeconds),
		SampleRate:      s.format.SampleRate,
		Channels:        s.format.Channels,
		BitsPerSample:   s.format.BitsPerSample,
	})
	if uploadErr != nil {
		return core.Track{}, fmt.Errorf("failed to upload audio for key '%s': %w", track.AudioKey, uploadErr)
	}

	return track, nil
}

// discard removes the tracks of a failed project that were already uploaded.
func (s *Studio) discard(ctx context.Context, tracks []core.Track) {
	for _, track := range tracks {
		if track.AudioKey == "" {
			continue
		}

		deleteErr := s.store.Delete(ctx, track.AudioKey)
		if deleteErr != nil {
			s.log.Warn("Failed to remove orphaned asset '%s': %v", track.AudioKey, deleteErr)
		}
	}
}

// renderedSeconds is the duration actually encoded, which is floored to whole frames.
func (s *Studio) renderedSeconds(durationSeconds float64) float64 {
	sampleRate := float64(s.format.SampleRate)

	return math.Floor(durationSeconds*sampleRate) / sampleRate
}

func trackTitle(project core.Project, index int) string {
	if project.Mode == core.ModeAlbum {
		return fmt.Sprintf(albumTitleFormat, project.Title, index+1)
	}

	return project.Title
}

func failed(project core.Project) core.Project {
	project.Status = core.StatusFailed
	project.Tracks = nil

	return project
}
