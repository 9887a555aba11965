package diag

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/core/event"
)

func TestTracerCountsOneTickLate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	bus := event.NewBus()
	tr := NewTracer(bus, log)

	ctx := action.NewContext(log)
	ctx.SetHooks(tr.Hooks())
	d := action.NewDriver(ctx, log)
	d.SetObserver(tr.Observe)

	seq := ctx.Sequence().Call(func() {}).Wait(10 * time.Millisecond)
	seq.SetLabel("pulse")
	if _, err := d.Start(seq, nil); err != nil {
		t.Fatal(err)
	}
	long, err := d.Start(ctx.Delay(time.Hour, nil), nil)
	if err != nil {
		t.Fatal(err)
	}

	tick := func() {
		bus.SwapBuffers()
		bus.DispatchAll()
		d.Tick(16 * time.Millisecond)
	}
	tick()
	if got := tr.Counts(); got != (Counts{}) {
		t.Fatalf("events delivered in the tick they were emitted: %+v", got)
	}
	tick() // the wait passes 10ms, pulse finishes
	long.Stop()
	tick()

	got := tr.Counts()
	// started: sequence, wait, long delay; finished: callback, wait, sequence
	want := Counts{Started: 3, Finished: 3, Controllers: 2, Stopped: 1}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
	entries := logs.FilterMessage("controller done").All()
	if len(entries) != 2 {
		t.Fatalf("controller logs = %d", len(entries))
	}
	if entries[0].ContextMap()["label"] != "pulse" {
		t.Fatalf("first controller = %v", entries[0].ContextMap())
	}
}
