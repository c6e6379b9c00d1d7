package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clinicdesk.org/internal/obs"
)

// ErrWriteFailed marks an entry that could not be persisted. It is logged and
// counted, never returned to the caller of Record.
var ErrWriteFailed = errors.New("audit: write failed")

const defaultWriteTimeout = 5 * time.Second

// Recorder accepts mutation events. Record must not block the caller on
// storage and never reports failure.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Writer persists entries. Implementations only ever append.
type Writer interface {
	AppendAudit(ctx context.Context, e *Entry) error
}

// AsyncRecorder writes each entry on its own goroutine with a bounded
// timeout, detached from the request context.
type AsyncRecorder struct {
	w       Writer
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// RecorderOption configures an AsyncRecorder.
type RecorderOption func(*AsyncRecorder)

// WithLogger sets the logger used for write failures.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *AsyncRecorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWriteTimeout bounds a single append.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *AsyncRecorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *AsyncRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder constructs an AsyncRecorder backed by w.
func NewRecorder(w Writer, opts ...RecorderOption) *AsyncRecorder {
	r := &AsyncRecorder{
		w:       w,
		logger:  slog.Default(),
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record serialises ev and appends it in the background. After Close the
// append happens inline so late events are not lost.
func (r *AsyncRecorder) Record(ctx context.Context, ev Event) {
	entry, err := r.entry(ev)
	if err != nil {
		r.fail(ev, err)
		return
	}
	base := context.WithoutCancel(ctx)

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		r.write(base, ev, entry)
		return
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	go func() {
		defer r.wg.Done()
		r.write(base, ev, entry)
	}()
}

// Close stops accepting background writes and waits for in-flight ones.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit: drain: %w", ctx.Err())
	}
}

func (r *AsyncRecorder) entry(ev Event) (*Entry, error) {
	if !ev.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", ev.Action)
	}
	details := json.RawMessage("{}")
	if ev.Payload != nil {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		details = data
	}
	return &Entry{
		ActorID:    ev.ActorID,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Details:    details,
		IPAddress:  ev.IPAddress,
		UserAgent:  ev.UserAgent,
		RequestID:  ev.RequestID,
		CreatedAt:  r.now().UTC(),
	}, nil
}

func (r *AsyncRecorder) write(ctx context.Context, ev Event, e *Entry) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.w.AppendAudit(ctx, e); err != nil {
		r.fail(ev, err)
		return
	}
	obs.AuditWrites.WithLabelValues(obs.AuditResultOK).Inc()
}

func (r *AsyncRecorder) fail(ev Event, err error) {
	obs.AuditWrites.WithLabelValues(obs.AuditResultError).Inc()
	r.logger.Error("audit write failed",
		"action", string(ev.Action),
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
		"request_id", ev.RequestID,
		"error", fmt.Errorf("%w: %v", ErrWriteFailed, err).Error(),
	)
}

// Discard is a Recorder that drops every event.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(context.Context, Event) {}
