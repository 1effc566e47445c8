package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"switchboard-hq/switchboard/pkg/rendezvous"
)

// writeTimeout bounds a single backend append.
const writeTimeout = 5 * time.Second

// Recorder writes journal entries asynchronously through a bounded channel.
// Recording never blocks a request goroutine: when the buffer is full the
// event is dropped and counted.
//
// Recorder implements rendezvous.EventSink for lifecycle events; turn events
// are recorded by the turn handler, which knows the utterance sizes.
type Recorder struct {
	backend Backend
	events  chan *Event
	dropped atomic.Int64
	logger  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRecorder creates a recorder over the backend and starts its writer.
func NewRecorder(backend Backend, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	r := &Recorder{
		backend: backend,
		events:  make(chan *Event, bufferSize),
		logger:  slog.Default().With("component", "audit.recorder"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an event, stamping its id and timestamp.
func (r *Recorder) Record(event *Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()

	select {
	case r.events <- event:
	default:
		// Buffer full; the journal is best-effort.
		if r.dropped.Add(1)%1000 == 1 {
			r.logger.Warn("audit buffer full, dropping events",
				"dropped_total", r.dropped.Load(),
			)
		}
	}
}

// RecordTurn records one completed exchange.
func (r *Recorder) RecordTurn(sessionID string, utteranceBytes int) {
	r.Record(&Event{
		Type:           EventTurnCompleted,
		SessionID:      sessionID,
		UtteranceBytes: utteranceBytes,
	})
}

// SessionCreated implements rendezvous.EventSink.
func (r *Recorder) SessionCreated(id string) {
	r.Record(&Event{Type: EventSessionCreated, SessionID: id, Side: string(rendezvous.SideA)})
}

// SessionPaired implements rendezvous.EventSink.
func (r *Recorder) SessionPaired(id string) {
	r.Record(&Event{Type: EventSessionPaired, SessionID: id, Side: string(rendezvous.SideB)})
}

// SessionClosed implements rendezvous.EventSink.
func (r *Recorder) SessionClosed(id string, reason rendezvous.CloseReason) {
	r.Record(&Event{Type: EventSessionClosed, SessionID: id, Detail: string(reason)})
}

// Recent returns up to limit events, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*Event, error) {
	return r.backend.Recent(ctx, limit)
}

// Dropped returns the number of events lost to buffer overflow.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains pending events, stops the writer, and closes the backend.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		<-r.doneCh
	})
	return r.backend.Close()
}

// run is the async writer goroutine.
func (r *Recorder) run() {
	defer close(r.doneCh)

	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.stopCh:
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

// write appends one event with a bounded timeout.
func (r *Recorder) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.backend.Append(ctx, event); err != nil {
		r.logger.Error("failed to write audit event",
			"event_type", string(event.Type),
			"session_id", event.SessionID,
			"error", err,
		)
	}
}
