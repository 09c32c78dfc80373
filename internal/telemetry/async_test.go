package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"poolfi/backend/internal/logging"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	done    chan struct{}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitterAndEvent(t *testing.T) {
	EmitAsync(nil, nil, NewEvent("test", "test", "", "", nil))

	emitter := &mockEventEmitter{}
	EmitAsync(emitter, nil, nil)
	time.Sleep(10 * time.Millisecond)
	if n := len(emitter.getEvents()); n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{done: make(chan struct{}, 1)}
	EmitAsync(emitter, logging.Discard(), NewEvent(EventPoolJoined, "pool_service", "user-1", "impact-x", map[string]int{"members": 2}))

	select {
	case <-emitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not run")
	}
	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.UserID != "user-1" || e.PoolID != "impact-x" || e.EventType != EventPoolJoined {
		t.Errorf("event = %+v", e)
	}
	if string(e.Metadata) != `{"members":2}` {
		t.Errorf("metadata = %s", e.Metadata)
	}
}

func TestEmitAsync_ErrorIsLoggedNotReturned(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: errors.New("kafka down"), done: make(chan struct{}, 1)}
	EmitAsync(emitter, logging.Discard(), NewEvent("test", "test", "", "", nil))
	select {
	case <-emitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not run")
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	a := &mockEventEmitter{}
	b := &mockEventEmitter{emitErr: errors.New("b failed")}
	m := Multi(a, nil, b)
	err := m.Emit(context.Background(), NewEvent("test", "test", "", "", nil))
	if err == nil {
		t.Fatal("Multi should return the failing emitter's error")
	}
	if len(a.getEvents()) != 1 || len(b.getEvents()) != 1 {
		t.Error("every emitter should receive the event")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.PoolRegistered(context.Background(), "GOAL", true)
	m.PoolJoined(context.Background())
	m.WithdrawalTransition(context.Background(), "APPROVED")
}

func TestNewMetrics_GlobalMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.PoolRegistered(context.Background(), "IMPACT", true)
	m.WithdrawalTransition(context.Background(), "APPROVED")
}
