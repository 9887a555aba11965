// Package diag turns action instrumentation into bus events and counters.
package diag

import (
	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/core/event"
)

// Counts is a snapshot of what the tracer has seen delivered.
type Counts struct {
	Started     uint64
	Finished    uint64
	Controllers uint64
	Stopped     uint64
}

// Tracer publishes unit and controller lifecycle events on the bus. Hooks
// only queue events; the subscribed handlers count and log them one tick
// later when EventDispatchSystem delivers them.
type Tracer struct {
	bus    *event.Bus
	log    *zap.Logger
	counts Counts
}

func NewTracer(bus *event.Bus, log *zap.Logger) *Tracer {
	t := &Tracer{bus: bus, log: log.Named("trace")}
	event.Subscribe(bus, t.onStarted)
	event.Subscribe(bus, t.onFinished)
	event.Subscribe(bus, t.onController)
	return t
}

// Hooks returns the hook set to install with action.Context.SetHooks.
func (t *Tracer) Hooks() *action.Hooks {
	return &action.Hooks{
		Started:  func(id uint64) { event.Emit(t.bus, event.UnitStarted{ID: id}) },
		Finished: func(id uint64) { event.Emit(t.bus, event.UnitFinished{ID: id}) },
	}
}

// Observe is a driver observer publishing every controller that leaves the
// driver.
func (t *Tracer) Observe(rec action.Record) {
	var frames uint64
	if rec.EndFrame > rec.StartFrame {
		frames = rec.EndFrame - rec.StartFrame
	}
	event.Emit(t.bus, event.ControllerFinished{
		Label:   rec.Label,
		RootID:  rec.RootID,
		Frames:  frames,
		Elapsed: rec.Elapsed,
		Stopped: rec.Stopped,
	})
}

func (t *Tracer) Counts() Counts { return t.counts }

func (t *Tracer) onStarted(e event.UnitStarted) {
	t.counts.Started++
}

func (t *Tracer) onFinished(e event.UnitFinished) {
	t.counts.Finished++
}

func (t *Tracer) onController(e event.ControllerFinished) {
	t.counts.Controllers++
	if e.Stopped {
		t.counts.Stopped++
	}
	t.log.Debug("controller done",
		zap.String("label", e.Label),
		zap.Uint64("root", e.RootID),
		zap.Uint64("frames", e.Frames),
		zap.Duration("elapsed", e.Elapsed),
		zap.Bool("stopped", e.Stopped),
	)
}
