package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/obs"
)

type memWriter struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	block   chan struct{}
}

func (m *memWriter) AppendAudit(ctx context.Context, e *Entry) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memWriter) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func TestRecorderAppendsEntry(t *testing.T) {
	w := &memWriter{}
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(w, WithClock(func() time.Time { return now }))

	ctx := auth.ContextWithIdentity(context.Background(), auth.Identity{ID: 1, Role: auth.RoleAdministrator})
	ctx = WithOrigin(ctx, Origin{IPAddress: "10.0.0.8", UserAgent: "curl/8.0", RequestID: "req-1"})

	changes := map[string]Change{"email": {From: "a@x.com", To: "b@x.com"}}
	rec.Record(ctx, NewEvent(ctx, ActionUpdate, EntityUser, 7, changes))
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := w.all()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != ActionUpdate || e.EntityType != EntityUser || e.EntityID != 7 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ActorID == nil || *e.ActorID != 1 {
		t.Fatalf("unexpected actor: %v", e.ActorID)
	}
	if e.IPAddress != "10.0.0.8" || e.UserAgent != "curl/8.0" || e.RequestID != "req-1" {
		t.Fatalf("origin not recorded: %+v", e)
	}
	if !e.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at: %v", e.CreatedAt)
	}
	var payload map[string]Change
	if err := json.Unmarshal(e.Details, &payload); err != nil {
		t.Fatalf("details not JSON: %v", err)
	}
	if payload["email"].From != "a@x.com" || payload["email"].To != "b@x.com" {
		t.Fatalf("unexpected payload: %s", e.Details)
	}
}

func TestRecorderSwallowsFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	w := &memWriter{err: errors.New("disk full")}
	rec := NewRecorder(w, WithLogger(logger))
	failedBefore := testutil.ToFloat64(obs.AuditWrites.WithLabelValues(obs.AuditResultError))

	rec.Record(context.Background(), Event{Action: ActionDelete, EntityType: EntityUser, EntityID: 3})
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := testutil.ToFloat64(obs.AuditWrites.WithLabelValues(obs.AuditResultError)) - failedBefore; got != 1 {
		t.Fatalf("expected one %q write counted, got %v", obs.AuditResultError, got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("audit write failed")) {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}
	if !bytes.Contains(logs.Bytes(), []byte(ErrWriteFailed.Error())) {
		t.Fatalf("expected ErrWriteFailed in log, got %q", logs.String())
	}
}

func TestRecorderRejectsBadEvents(t *testing.T) {
	var logs bytes.Buffer
	w := &memWriter{}
	rec := NewRecorder(w, WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	rec.Record(context.Background(), Event{Action: "rename", EntityType: EntityUser, EntityID: 1})
	rec.Record(context.Background(), Event{Action: ActionCreate, EntityType: EntityUser, EntityID: 1, Payload: func() {}})
	_ = rec.Close(context.Background())

	if len(w.all()) != 0 {
		t.Fatalf("expected no entries")
	}
	if !bytes.Contains(logs.Bytes(), []byte("audit write failed")) {
		t.Fatalf("expected failures to be logged")
	}
}

func TestRecorderDoesNotBlockCaller(t *testing.T) {
	w := &memWriter{block: make(chan struct{})}
	rec := NewRecorder(w, WithWriteTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Record(ctx, Event{Action: ActionCreate, EntityType: EntityUser, EntityID: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked on the writer")
	}

	// Cancelling the request context must not abort the pending write.
	cancel()
	close(w.block)
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(w.all()) != 1 {
		t.Fatalf("expected write to survive request cancellation")
	}
}

func TestRecorderCloseHonoursDeadline(t *testing.T) {
	w := &memWriter{block: make(chan struct{})}
	defer close(w.block)
	rec := NewRecorder(w, WithWriteTimeout(time.Minute))
	rec.Record(context.Background(), Event{Action: ActionCreate, EntityType: EntityUser, EntityID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rec.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRecorderAfterCloseWritesInline(t *testing.T) {
	w := &memWriter{}
	rec := NewRecorder(w)
	_ = rec.Close(context.Background())

	rec.Record(context.Background(), Event{Action: ActionCreate, EntityType: EntityUser, EntityID: 2})
	if len(w.all()) != 1 {
		t.Fatalf("expected inline write after close")
	}
}

func TestNewEventWithoutIdentity(t *testing.T) {
	ev := NewEvent(context.Background(), ActionCreate, EntityUser, 4, nil)
	if ev.ActorID != nil {
		t.Fatalf("expected system actor")
	}
}
