// Package worker provides a NATS worker that renders synthesis requests into stored audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/core"
	"github.com/book-expert/synth-service/internal/studio"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultHandleTimeout = 5 * time.Minute

var (
	// ErrNilConnection indicates that the worker was created without a NATS connection.
	ErrNilConnection = errors.New("nats connection cannot be nil")
	// ErrNilRenderer indicates that the worker was created without a renderer.
	ErrNilRenderer = errors.New("renderer cannot be nil")
	// ErrSubjectEmpty indicates that a subject was not provided.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
)

// Renderer turns a project into rendered, stored tracks.
type Renderer interface {
	Render(ctx context.Context, project core.Project) (core.Project, error)
}

// Subjects names the NATS subjects used by the worker.
type Subjects struct {
	Request    string
	QueueGroup string
	Rendered   string
}

// NatsWorker listens for synthesis requests on a NATS subject and renders them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subjects       Subjects
	renderer       Renderer
	timeout        time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. A non-positive timeout selects the default.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjects Subjects,
	renderer Renderer,
	timeout time.Duration,
	log *logger.Logger,
) (*NatsWorker, error) {
	if natsConnection == nil {
		return nil, ErrNilConnection
	}

	if renderer == nil {
		return nil, ErrNilRenderer
	}

	if subjects.Request == "" || subjects.Rendered == "" {
		return nil, ErrSubjectEmpty
	}

	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subjects:       subjects,
		renderer:       renderer,
		timeout:        timeout,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if w.subjects.QueueGroup != "" {
		sub, err = w.natsConnection.QueueSubscribe(w.subjects.Request, w.subjects.QueueGroup, w.handleMessage)
	} else {
		sub, err = w.natsConnection.Subscribe(w.subjects.Request, w.handleMessage)
	}

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subjects.Request, err)
	}

	w.log.Info("Listening for synthesis requests on %s", w.subjects.Request)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	request, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse synthesis request: %v", err)
		w.reply(msg, failedEvent(events.EventHeader{}, core.Project{Status: core.StatusFailed}, err))

		return
	}

	project := projectFromRequest(request)

	rendered, renderErr := w.renderer.Render(ctx, project)
	if renderErr != nil {
		w.log.Error("Failed to render project %s for workflow %s: %v",
			project.ID, request.Header.WorkflowID, renderErr)
		w.reply(msg, failedEvent(request.Header, rendered, renderErr))

		return
	}

	w.log.Info("Rendered project %s (%d tracks) for workflow %s",
		rendered.ID, len(rendered.Tracks), request.Header.WorkflowID)

	w.reply(msg, &core.ProjectRenderedEvent{
		Header:  replyHeader(request.Header),
		Project: rendered,
		Error:   "",
	})
}

// reply answers the requester, when there is one, and publishes the outcome for other consumers.
func (w *NatsWorker) reply(msg *nats.Msg, event *core.ProjectRenderedEvent) {
	replyData, err := json.Marshal(event)
	if err != nil {
		w.log.Error("Failed to marshal rendered event: %v", err)

		return
	}

	if msg.Reply != "" {
		respondErr := msg.Respond(replyData)
		if respondErr != nil {
			w.log.Error("Failed to respond for workflow %s: %v", event.Header.WorkflowID, respondErr)
		}
	}

	publishErr := w.natsConnection.Publish(w.subjects.Rendered, replyData)
	if publishErr != nil {
		w.log.Error("Failed to publish rendered event on %s: %v", w.subjects.Rendered, publishErr)
	}
}

func parseEvent(msg *nats.Msg) (*core.SynthesisRequestedEvent, error) {
	var event core.SynthesisRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

func projectFromRequest(request *core.SynthesisRequestedEvent) core.Project {
	project := studio.NewProject(request.Title, request.Mode, request.TrackCount, request.DurationSeconds)
	if request.ProjectID != "" {
		project.ID = request.ProjectID
	}

	return project
}

func replyHeader(requestHeader events.EventHeader) events.EventHeader {
	header := requestHeader
	header.EventID = uuid.NewString()
	header.Timestamp = time.Now()

	return header
}

func failedEvent(requestHeader events.EventHeader, project core.Project, err error) *core.ProjectRenderedEvent {
	project.Status = core.StatusFailed
	project.Tracks = nil

	return &core.ProjectRenderedEvent{
		Header:  replyHeader(requestHeader),
		Project: project,
		Error:   err.Error(),
	}
}
