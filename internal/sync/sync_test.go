package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	if d.err != nil {
		return d.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	ms := memory.New()
	seedForm(t, ms, "fm-1", model.StateDraft)

	dest := &mockDestination{}
	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, discardLogger())
	sched.Start()

	// Wait for at least the initial sync + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// 1 header + 1 form
	if lines := nonEmptyLines(string(data)); len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, nil)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSyncOnce_FailingDestination(t *testing.T) {
	good := &mockDestination{}
	bad := &mockDestination{err: errors.New("bucket unavailable")}

	sched := NewScheduler(memory.New(), []Destination{bad, good}, time.Minute, discardLogger())
	if n := sched.SyncOnce(context.Background()); n != 1 {
		t.Fatalf("accepted = %d, want 1", n)
	}
	if good.writes.Load() != 1 || bad.writes.Load() != 1 {
		t.Fatalf("writes: good=%d bad=%d", good.writes.Load(), bad.writes.Load())
	}
}

func TestSyncOnce_ExportFailure(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(failingStore{memory.New()}, []Destination{dest}, time.Minute, discardLogger())
	if n := sched.SyncOnce(context.Background()); n != 0 {
		t.Fatalf("accepted = %d, want 0", n)
	}
	if dest.writes.Load() != 0 {
		t.Fatal("destination written after export failure")
	}
}
