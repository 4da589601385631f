// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/book-expert/synth-service/internal/core"
	"github.com/book-expert/synth-service/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server with JetStream for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		natsServer.Shutdown()
	})

	return natsServer, natsConnection
}

func newStore(t *testing.T, bucket string) (*objectstore.NatsObjectStore, nats.JetStreamContext) {
	t.Helper()

	_, natsConnection := StartTestServer(t)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, bucket)
	require.NoError(t, err)

	return store, jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "test-bucket")
	ctx := context.Background()
	key := "project-1/track-1.wav"
	asset := []byte("RIFF....WAVEfmt ")

	err := store.Upload(ctx, key, asset, core.AssetMetadata{
		ContentType:     "audio/wav",
		Description:     "Demo - Part 1",
		DurationSeconds: 1.5,
		SampleRate:      44100,
		Channels:        2,
		BitsPerSample:   16,
	})
	require.NoError(t, err)

	downloaded, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, asset, downloaded)

	meta, size, err := store.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(asset)), size)
	assert.Equal(t, "audio/wav", meta.ContentType)
	assert.Equal(t, "Demo - Part 1", meta.Description)
	assert.InDelta(t, 1.5, meta.DurationSeconds, 1e-9)
	assert.Equal(t, uint32(44100), meta.SampleRate)
	assert.Equal(t, uint16(2), meta.Channels)
	assert.Equal(t, uint16(16), meta.BitsPerSample)
}

func TestNatsObjectStore_MissingAsset(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "missing-bucket")
	ctx := context.Background()

	_, err := store.Download(ctx, "nope.wav")
	require.ErrorIs(t, err, objectstore.ErrAssetNotFound)

	_, _, err = store.Stat(ctx, "nope.wav")
	require.ErrorIs(t, err, objectstore.ErrAssetNotFound)
}

func TestNatsObjectStore_Delete(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "delete-bucket")
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "gone.wav", []byte("data"), core.AssetMetadata{}))
	require.NoError(t, store.Delete(ctx, "gone.wav"))

	_, err := store.Download(ctx, "gone.wav")
	require.ErrorIs(t, err, objectstore.ErrAssetNotFound)
}

func TestNew_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	first, jetstreamContext := newStore(t, "shared-bucket")
	ctx := context.Background()

	require.NoError(t, first.Upload(ctx, "kept.wav", []byte("kept"), core.AssetMetadata{}))

	second, err := objectstore.New(jetstreamContext, "shared-bucket")
	require.NoError(t, err)

	data, err := second.Download(ctx, "kept.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), data)
}

func TestNatsObjectStore_StatReportsCorruptMetadata(t *testing.T) {
	t.Parallel()

	store, jetstreamContext := newStore(t, "corrupt-bucket")
	ctx := context.Background()

	raw, err := jetstreamContext.ObjectStore("corrupt-bucket")
	require.NoError(t, err)

	_, err = raw.PutBytes("foreign.wav", []byte("RIFF"))
	require.NoError(t, err)

	_, err = raw.Put(&nats.ObjectMeta{
		Name:        "broken.wav",
		Description: "",
		Headers:     nil,
		Metadata:    map[string]string{"sample_rate": "forty-four k", "channels": "2"},
		Opts:        nil,
	}, bytes.NewReader([]byte("RIFF")))
	require.NoError(t, err)

	meta, size, err := store.Stat(ctx, "broken.wav")
	require.ErrorIs(t, err, objectstore.ErrCorruptMetadata)
	assert.Contains(t, err.Error(), "sample_rate")
	assert.Equal(t, uint64(4), size)
	assert.Zero(t, meta.SampleRate)
	assert.Equal(t, uint16(2), meta.Channels)

	// Objects written without format metadata are not corrupt.
	meta, _, err = store.Stat(ctx, "foreign.wav")
	require.NoError(t, err)
	assert.Zero(t, meta.SampleRate)
}
