package core

import "github.com/book-expert/events"

// SynthesisRequestedEvent asks a worker to render a project.
type SynthesisRequestedEvent struct {
	Header          events.EventHeader `json:"header"`
	ProjectID       string             `json:"projectId"`
	Title           string             `json:"title"`
	Mode            CreationMode       `json:"mode"`
	TrackCount      int                `json:"trackCount"`
	DurationSeconds float64            `json:"durationSeconds"`
}

// ProjectRenderedEvent reports the outcome of a SynthesisRequestedEvent.
// Error is set only when Project.Status is StatusFailed.
type ProjectRenderedEvent struct {
	Header  events.EventHeader `json:"header"`
	Project Project            `json:"project"`
	Error   string             `json:"error,omitempty"`
}
