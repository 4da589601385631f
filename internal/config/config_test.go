// Package config_test tests the configuration loading for the synth-service.
package config_test

import (
	"testing"

	"github.com/book-expert/synth-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlData = `
[nats]
url = "nats://127.0.0.1:4222"
synthesis_queue_group = "synth-workers"
synthesis_request_subject = "synth.requested"
project_rendered_subject = "synth.project.rendered"
audio_object_store_bucket = "SYNTH_AUDIO"

[synth]
workers = 4
max_album_tracks = 12
timeout_seconds = 300
seed = 1234
fixed_seed = true

[paths]
base_logs_dir = "/var/log/synth-service"
`

func decode(t *testing.T) config.Config {
	t.Helper()

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	return cfg
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg := decode(t)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "synth-workers", cfg.NATS.SynthesisQueueGroup)
	assert.Equal(t, "synth.requested", cfg.NATS.SynthesisRequestSubject)
	assert.Equal(t, "synth.project.rendered", cfg.NATS.ProjectRenderedSubject)
	assert.Equal(t, "SYNTH_AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, 4, cfg.Synth.Workers)
	assert.Equal(t, 12, cfg.Synth.MaxAlbumTracks)
	assert.Equal(t, 300, cfg.Synth.TimeoutSeconds)
	assert.Equal(t, uint64(1234), cfg.Synth.Seed)
	assert.True(t, cfg.Synth.FixedSeed)
	assert.Equal(t, "/var/log/synth-service", cfg.Paths.BaseLogsDir)

	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   error
	}{
		{"missing url", func(cfg *config.Config) { cfg.NATS.URL = "" }, config.ErrMissingNATSURL},
		{
			"missing request subject",
			func(cfg *config.Config) { cfg.NATS.SynthesisRequestSubject = "" },
			config.ErrMissingSubject,
		},
		{
			"missing rendered subject",
			func(cfg *config.Config) { cfg.NATS.ProjectRenderedSubject = "" },
			config.ErrMissingSubject,
		},
		{"missing bucket", func(cfg *config.Config) { cfg.NATS.AudioObjectStoreBucket = "" }, config.ErrMissingBucket},
		{"zero workers", func(cfg *config.Config) { cfg.Synth.Workers = 0 }, config.ErrWorkerCountRange},
		{"too many workers", func(cfg *config.Config) { cfg.Synth.Workers = 65 }, config.ErrWorkerCountRange},
		{"zero album tracks", func(cfg *config.Config) { cfg.Synth.MaxAlbumTracks = 0 }, config.ErrAlbumTracksRange},
		{"negative timeout", func(cfg *config.Config) { cfg.Synth.TimeoutSeconds = -1 }, config.ErrTimeoutNonPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := decode(t)
			tt.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
