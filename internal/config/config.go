// Package config provides the configuration structure for the synth-service.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Limits applied when validating the synth table.
const (
	maxWorkerCount = 64
	maxAlbumTracks = 32
)

var (
	// ErrMissingNATSURL indicates that no NATS server URL was configured.
	ErrMissingNATSURL = errors.New("nats url cannot be empty")
	// ErrMissingSubject indicates that a required NATS subject was not configured.
	ErrMissingSubject = errors.New("nats subject cannot be empty")
	// ErrMissingBucket indicates that the asset bucket name was not configured.
	ErrMissingBucket = errors.New("asset object store bucket cannot be empty")
	// ErrWorkerCountRange indicates the parallel track count is outside [1, maxWorkerCount].
	ErrWorkerCountRange = errors.New("workers out of range")
	// ErrAlbumTracksRange indicates the album track limit is outside [1, maxAlbumTracks].
	ErrAlbumTracksRange = errors.New("max album tracks out of range")
	// ErrTimeoutNonPositive indicates a zero or negative job timeout.
	ErrTimeoutNonPositive = errors.New("timeout_seconds must be positive")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                     string `toml:"url"`
	SynthesisQueueGroup     string `toml:"synthesis_queue_group"`
	SynthesisRequestSubject string `toml:"synthesis_request_subject"`
	ProjectRenderedSubject  string `toml:"project_rendered_subject"`
	AudioObjectStoreBucket  string `toml:"audio_object_store_bucket"`
}

// SynthConfig holds the rendering limits of the service.
type SynthConfig struct {
	Workers        int    `toml:"workers"`
	MaxAlbumTracks int    `toml:"max_album_tracks"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Seed           uint64 `toml:"seed"`
	FixedSeed      bool   `toml:"fixed_seed"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS  NATSConfig  `toml:"nats"`
	Synth SynthConfig `toml:"synth"`
	Paths PathsConfig `toml:"paths"`
}

// Load loads the configuration for the synth-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// Validate checks that every value the service depends on is present and in range.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return ErrMissingNATSURL
	}

	if c.NATS.SynthesisRequestSubject == "" {
		return fmt.Errorf("%w: synthesis_request_subject", ErrMissingSubject)
	}

	if c.NATS.ProjectRenderedSubject == "" {
		return fmt.Errorf("%w: project_rendered_subject", ErrMissingSubject)
	}

	if c.NATS.AudioObjectStoreBucket == "" {
		return ErrMissingBucket
	}

	if c.Synth.Workers < 1 || c.Synth.Workers > maxWorkerCount {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrWorkerCountRange, c.Synth.Workers, maxWorkerCount)
	}

	if c.Synth.MaxAlbumTracks < 1 || c.Synth.MaxAlbumTracks > maxAlbumTracks {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrAlbumTracksRange, c.Synth.MaxAlbumTracks, maxAlbumTracks)
	}

	if c.Synth.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutNonPositive, c.Synth.TimeoutSeconds)
	}

	return nil
}
