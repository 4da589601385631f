// Package core defines the domain types and interfaces shared by the synth-service packages.
package core

import (
	"context"
	"time"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, meta AssetMetadata) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Synthesizer renders a complete encoded audio asset of the requested duration.
type Synthesizer interface {
	Synthesize(ctx context.Context, durationSeconds float64) ([]byte, error)
}

// AssetMetadata describes an uploaded asset.
type AssetMetadata struct {
	ContentType     string
	Description     string
	DurationSeconds float64
	SampleRate      uint32
	Channels        uint16
	BitsPerSample   uint16
}

// CreationMode selects how many tracks a project renders.
type CreationMode string

// Supported creation modes.
const (
	ModeSingle CreationMode = "single"
	ModeAlbum  CreationMode = "album"
)

// Status is the lifecycle state of a project.
type Status string

// Project statuses.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Track is one rendered audio asset of a project.
type Track struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	AudioKey        string  `json:"audioKey"`
	DurationSeconds float64 `json:"durationSeconds"`
	SizeBytes       int     `json:"sizeBytes"`
}

// Project groups the tracks rendered for one request.
type Project struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Mode            CreationMode `json:"mode"`
	TrackCount      int          `json:"trackCount"`
	DurationSeconds float64      `json:"durationSeconds"`
	Status          Status       `json:"status"`
	Tracks          []Track      `json:"tracks"`
	CreatedAt       time.Time    `json:"createdAt"`
}
