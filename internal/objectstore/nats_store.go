// Package objectstore persists rendered audio assets in a NATS JetStream object store.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/book-expert/synth-service/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Object metadata keys.
const (
	headerContentType   = "Content-Type"
	metaDuration        = "duration_seconds"
	metaSampleRate      = "sample_rate"
	metaChannels        = "channels"
	metaBitsPerSample   = "bits_per_sample"
	durationPrecision   = 3
	durationFloatFormat = 'f'
)

var (
	// ErrAssetNotFound is returned when a key does not exist in the bucket.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrCorruptMetadata is returned by Stat when a stored format field cannot be parsed.
	ErrCorruptMetadata = errors.New("asset metadata is corrupt")
)

// NatsObjectStore implements the core.ObjectStore interface using NATS JetStream.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Rendered WAV assets for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Upload saves an asset and its format metadata.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte, meta core.AssetMetadata) error {
	headers := nats.Header{}
	if meta.ContentType != "" {
		headers.Set(headerContentType, meta.ContentType)
	}

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: meta.Description,
		Headers:     headers,
		Metadata:    encodeMetadata(meta),
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put asset '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// Download retrieves an asset.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, n.wrapLookupError(key, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read asset '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close asset '%s': %w", key, closeErr)
	}

	return data, nil
}

// Stat returns the stored metadata of an asset without downloading it. When a stored field is
// malformed the remaining fields and size are still returned alongside ErrCorruptMetadata.
func (n *NatsObjectStore) Stat(_ context.Context, key string) (core.AssetMetadata, uint64, error) {
	info, err := n.store.GetInfo(key)
	if err != nil {
		return core.AssetMetadata{}, 0, n.wrapLookupError(key, err)
	}

	meta, decodeErr := decodeMetadata(info.Metadata)
	meta.Description = info.Description
	meta.ContentType = info.Headers.Get(headerContentType)

	if decodeErr != nil {
		return meta, info.Size, fmt.Errorf("asset '%s' in bucket '%s': %w", key, n.bucket, decodeErr)
	}

	return meta, info.Size, nil
}

// Delete removes an asset.
func (n *NatsObjectStore) Delete(_ context.Context, key string) error {
	err := n.store.Delete(key)
	if err != nil {
		return n.wrapLookupError(key, err)
	}

	return nil
}

func (n *NatsObjectStore) wrapLookupError(key string, err error) error {
	if errors.Is(err, nats.ErrObjectNotFound) {
		return fmt.Errorf("%w: '%s' in bucket '%s'", ErrAssetNotFound, key, n.bucket)
	}

	return fmt.Errorf("failed to access asset '%s' in bucket '%s': %w", key, n.bucket, err)
}

func encodeMetadata(meta core.AssetMetadata) map[string]string {
	return map[string]string{
		metaDuration:      strconv.FormatFloat(meta.DurationSeconds, durationFloatFormat, durationPrecision, 64),
		metaSampleRate:    strconv.FormatUint(uint64(meta.SampleRate), 10),
		metaChannels:      strconv.FormatUint(uint64(meta.Channels), 10),
		metaBitsPerSample: strconv.FormatUint(uint64(meta.BitsPerSample), 10),
	}
}

// decodeMetadata parses the stored format fields. Absent keys leave the field zero; malformed
// values leave it zero too and are reported together as ErrCorruptMetadata.
func decodeMetadata(values map[string]string) (core.AssetMetadata, error) {
	var (
		meta   core.AssetMetadata
		errs   []error
		parsed uint64
		err    error
	)

	if raw, ok := values[metaDuration]; ok {
		meta.DurationSeconds, err = strconv.ParseFloat(raw, 64)
		errs = append(errs, fieldError(metaDuration, err))
	}

	if raw, ok := values[metaSampleRate]; ok {
		parsed, err = strconv.ParseUint(raw, 10, 32)
		meta.SampleRate = uint32(parsed)
		errs = append(errs, fieldError(metaSampleRate, err))
	}

	if raw, ok := values[metaChannels]; ok {
		parsed, err = strconv.ParseUint(raw, 10, 16)
		meta.Channels = uint16(parsed)
		errs = append(errs, fieldError(metaChannels, err))
	}

	if raw, ok := values[metaBitsPerSample]; ok {
		parsed, err = strconv.ParseUint(raw, 10, 16)
		meta.BitsPerSample = uint16(parsed)
		errs = append(errs, fieldError(metaBitsPerSample, err))
	}

	joined := errors.Join(errs...)
	if joined != nil {
		return meta, fmt.Errorf("%w: %w", ErrCorruptMetadata, joined)
	}

	return meta, nil
}

func fieldError(field string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", field, err)
}
