package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/core/event"
	coresys "github.com/l1jgo/action/internal/core/system"
	"github.com/l1jgo/action/internal/persist"
)

type fakeWriter struct {
	mu        sync.Mutex
	entries   []persist.JournalEntry
	calls     int
	err       error
	blockOnce bool // first call waits for its context instead of writing
}

func (w *fakeWriter) Write(ctx context.Context, entries []persist.JournalEntry) error {
	w.mu.Lock()
	w.calls++
	block := w.blockOnce && w.calls == 1
	err := w.err
	w.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.entries = append(w.entries, entries...)
	w.mu.Unlock()
	return nil
}

func (w *fakeWriter) snapshot() []persist.JournalEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]persist.JournalEntry(nil), w.entries...)
}

type harness struct {
	ctx     *action.Context
	driver  *action.Driver
	runner  *coresys.Runner
	actions *ActionSystem
	recycle *RecycleSystem
	journal *JournalSystem
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, w JournalWriter, interval int) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	ctx := action.NewContext(log)
	d := action.NewDriver(ctx, log)
	h := &harness{
		ctx:     ctx,
		driver:  d,
		runner:  coresys.NewRunner(),
		actions: NewActionSystem(d, 0, log),
		recycle: NewRecycleSystem(d),
		journal: NewJournalSystem(d, w, uuid.New(), interval, log),
		logs:    logs,
	}
	d.SetObserver(h.journal.Observe)
	h.runner.Register(h.recycle)
	h.runner.Register(h.journal)
	h.runner.Register(h.actions)
	return h
}

func (h *harness) startLabelled(t *testing.T, labels ...string) {
	t.Helper()
	for _, l := range labels {
		cb := h.ctx.Callback(nil)
		cb.SetLabel(l)
		if _, err := h.driver.Start(cb, nil); err != nil {
			t.Fatal(err)
		}
	}
}

// tickUntil runs the pipeline until cond holds or two seconds pass.
func (h *harness) tickUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.runner.Tick(16 * time.Millisecond)
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestJournalFlushesThroughDriver(t *testing.T) {
	w := &fakeWriter{}
	h := newHarness(t, w, 2)
	h.startLabelled(t, "a", "b", "c")

	if !h.tickUntil(func() bool { return h.journal.Written() == 3 }) {
		t.Fatalf("written = %d, want 3", h.journal.Written())
	}
	got := w.snapshot()
	if len(got) != 3 {
		t.Fatalf("writer got %d entries", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].Label != want || got[i].RunID != h.journal.runID {
			t.Fatalf("entry %d = %+v", i, got[i])
		}
	}
	// let the flush task's own record pass through the observer
	h.runner.Tick(16 * time.Millisecond)
	if h.journal.Buffered() != 0 {
		t.Fatalf("flush task was journaled: %d buffered", h.journal.Buffered())
	}
	if h.actions.Ticks() == 0 || h.recycle.Recycled() == 0 {
		t.Fatalf("ticks=%d recycled=%d", h.actions.Ticks(), h.recycle.Recycled())
	}
}

func TestJournalWriteFailureIsCounted(t *testing.T) {
	w := &fakeWriter{err: errors.New("db down")}
	h := newHarness(t, w, 1)
	h.startLabelled(t, "a", "b")

	if !h.tickUntil(func() bool { return h.journal.Failed() == 2 }) {
		t.Fatalf("failed = %d, want 2", h.journal.Failed())
	}
	if h.logs.FilterMessage("journal write failed").Len() != 1 {
		t.Fatal("write failure not logged")
	}
}

func TestJournalDrainRewritesStoppedBatch(t *testing.T) {
	w := &fakeWriter{blockOnce: true}
	h := newHarness(t, w, 1)
	h.startLabelled(t, "a")

	// tick 1 finishes "a", tick 1's persist phase starts the flush,
	// tick 2 launches it and the writer blocks
	h.runner.Tick(16 * time.Millisecond)
	h.runner.Tick(16 * time.Millisecond)
	h.startLabelled(t, "b")
	h.runner.Tick(16 * time.Millisecond)

	h.driver.StopAll()
	if err := h.journal.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := w.snapshot()
	if len(got) != 2 || got[0].Label != "a" || got[1].Label != "b" {
		t.Fatalf("drained %+v", got)
	}
	if h.journal.Written() != 2 {
		t.Fatalf("written = %d", h.journal.Written())
	}
}

func TestEventDispatchSystem(t *testing.T) {
	bus := event.NewBus()
	var seen []uint64
	event.Subscribe(bus, func(e event.UnitFinished) { seen = append(seen, e.ID) })
	s := NewEventDispatchSystem(bus)
	if s.Phase() != coresys.PhaseDispatch {
		t.Fatalf("phase = %s", s.Phase())
	}

	event.Emit(bus, event.UnitFinished{ID: 7})
	s.Update(0)
	if len(seen) != 1 || seen[0] != 7 {
		t.Fatalf("seen = %v", seen)
	}
	s.Update(0)
	if len(seen) != 1 {
		t.Fatalf("event delivered twice: %v", seen)
	}
}
