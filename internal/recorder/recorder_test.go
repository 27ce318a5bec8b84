package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/streamsock/internal/router"
)

func TestRecorder_Transform(t *testing.T) {
	cfg := DefaultConfig()
	input := router.NewQueue[Raw](10)
	r := New(cfg, input, nil, nil)

	sessionID := uuid.New()
	receivedAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	raw := Raw{
		SessionID:  sessionID,
		ReceivedAt: receivedAt,
		Payload:    []byte(`{"type":"trade","seq":42}`),
	}

	row := r.transform(raw)

	if row.ID == uuid.Nil {
		t.Error("expected a generated row ID")
	}
	if row.SessionID != sessionID {
		t.Errorf("SessionID = %s, want %s", row.SessionID, sessionID)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
	if string(row.Payload) != `{"type":"trade","seq":42}` {
		t.Errorf("Payload = %s", row.Payload)
	}
}

func TestRecorder_Transform_UniqueIDs(t *testing.T) {
	cfg := DefaultConfig()
	input := router.NewQueue[Raw](10)
	r := New(cfg, input, nil, nil)

	raw := Raw{SessionID: uuid.New(), ReceivedAt: time.Now(), Payload: []byte(`{}`)}

	a := r.transform(raw)
	b := r.transform(raw)
	if a.ID == b.ID {
		t.Error("expected distinct row IDs for identical payloads")
	}
}

func TestRecorder_HandleRaw_AddsToBatch(t *testing.T) {
	cfg := Config{BatchSize: 10, FlushInterval: time.Hour}
	input := router.NewQueue[Raw](10)
	r := New(cfg, input, nil, nil)

	r.handleRaw(Raw{SessionID: uuid.New(), ReceivedAt: time.Now(), Payload: []byte(`{"a":1}`)})
	r.handleRaw(Raw{SessionID: uuid.New(), ReceivedAt: time.Now(), Payload: []byte(`{"a":2}`)})

	r.batchMu.Lock()
	got := len(r.batch)
	r.batchMu.Unlock()

	if got != 2 {
		t.Errorf("batch length = %d, want 2", got)
	}
}

func TestRecorder_Lifecycle(t *testing.T) {
	cfg := Config{BatchSize: 10, FlushInterval: 100 * time.Millisecond}
	input := router.NewQueue[Raw](10)
	r := New(cfg, input, nil, nil)

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestRecorder_Stats(t *testing.T) {
	cfg := DefaultConfig()
	input := router.NewQueue[Raw](10)
	r := New(cfg, input, nil, nil)

	stats := r.Stats()
	if stats.Inserts != 0 || stats.Errors != 0 || stats.Flushes != 0 {
		t.Errorf("expected zeroed metrics, got %+v", stats)
	}
}
