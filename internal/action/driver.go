package action

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/core/arena"
)

// Record describes a controller that left the driver.
type Record struct {
	Label      string
	RootID     uint64
	StartFrame uint64
	EndFrame   uint64
	Elapsed    time.Duration // sum of dt the root was driven with
	Stopped    bool          // cancelled through Stop rather than finished
}

type entry struct {
	root       unit
	onFinish   func()
	label      string
	startFrame uint64
	elapsed    time.Duration
}

// Driver owns the registered controllers and advances them once per tick in
// registration order.
type Driver struct {
	ctx      *Context
	log      *zap.Logger
	entries  *arena.Arena[entry]
	active   []arena.ID
	observer func(Record)
}

func NewDriver(ctx *Context, log *zap.Logger) *Driver {
	return &Driver{
		ctx:     ctx,
		log:     log.Named("driver"),
		entries: arena.New[entry](32),
		active:  make([]arena.ID, 0, 32),
	}
}

func (d *Driver) Context() *Context { return d.ctx }

// Len returns the number of registered controllers.
func (d *Driver) Len() int { return d.entries.Len() }

// SetObserver installs a callback receiving a Record for every controller
// that finishes or is stopped.
func (d *Driver) SetObserver(fn func(Record)) { d.observer = fn }

// Start registers root with the driver. It is the only way work gets driven.
// onFinish (optional) runs once, on the tick the root finishes. Controllers
// started while a pass is running are first updated on the next tick.
func (d *Driver) Start(root Action, onFinish func()) (Controller, error) {
	if root == nil {
		return Controller{}, ErrNilAction
	}
	b := root.core()
	switch {
	case b.ctx != d.ctx:
		return Controller{}, ErrForeignContext
	case b.tornDown:
		return Controller{}, fmt.Errorf("start %s: %w", b.Label(), ErrTornDown)
	case b.owned():
		return Controller{}, fmt.Errorf("start %s: %w", b.Label(), ErrAttached)
	}
	if g, ok := b.self.(interface{ composeErr() error }); ok && g.composeErr() != nil {
		return Controller{}, fmt.Errorf("start %s: %w", b.Label(), g.composeErr())
	}

	h, e, _ := d.entries.Acquire(newSlot[entry])
	*e = entry{
		root:       b.self,
		onFinish:   onFinish,
		label:      b.Label(),
		startFrame: d.ctx.frame,
	}
	b.rooted = true
	d.active = append(d.active, h)
	return Controller{d: d, h: h}, nil
}

// Advance moves the frame counter forward and updates every controller that
// was registered before the pass began. Finished roots are torn down; their
// memory goes back to the pools only on Flush.
func (d *Driver) Advance(dt time.Duration) {
	d.ctx.frame++
	d.ctx.inPass = true
	n := len(d.active)
	for i := 0; i < n; i++ {
		h := d.active[i]
		e, ok := d.entries.Get(h)
		if !ok {
			continue // stopped earlier in this pass
		}
		if !e.root.Paused() {
			e.elapsed += dt
		}
		if d.step(e, dt) {
			d.complete(h, e)
		}
	}
	d.ctx.inPass = false
	d.compact()
}

// Flush returns this tick's torn-down units to their pools.
func (d *Driver) Flush() int { return d.ctx.Flush() }

// Tick is Advance followed by Flush.
func (d *Driver) Tick(dt time.Duration) {
	d.Advance(dt)
	d.Flush()
}

// StopAll stops every controller, tearing down all roots synchronously.
func (d *Driver) StopAll() int {
	live := make([]arena.ID, 0, d.entries.Len())
	d.entries.Each(func(h arena.ID, _ *entry) { live = append(live, h) })
	n := 0
	for _, h := range live {
		if d.stop(h) == nil {
			n++
		}
	}
	if !d.ctx.inPass {
		d.compact()
	}
	return n
}

// step isolates one controller: a panic escaping the unit boundary is logged
// and counts as no progress for that controller only.
func (d *Driver) step(e *entry, dt time.Duration) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("controller panic recovered",
				zap.String("label", e.label),
				zap.Any("panic", r),
			)
			done = false
		}
	}()
	return e.root.Update(dt)
}

func (d *Driver) complete(h arena.ID, e *entry) {
	if e.onFinish != nil {
		d.safeCall(e.label, e.onFinish)
	}
	if !d.entries.Alive(h) {
		return // stopped from inside onFinish
	}
	rec := d.record(e, false)
	root := e.root
	*e = entry{}
	d.entries.Release(h)
	root.core().rooted = false
	d.ctx.recycle(root)
	d.emit(rec)
}

func (d *Driver) stop(h arena.ID) error {
	e, ok := d.entries.Get(h)
	if !ok {
		return ErrStale
	}
	rec := d.record(e, true)
	root := e.root
	*e = entry{}
	d.entries.Release(h)
	root.core().rooted = false
	d.ctx.recycle(root)
	d.emit(rec)
	return nil
}

func (d *Driver) record(e *entry, stopped bool) Record {
	return Record{
		Label:      e.label,
		RootID:     e.root.ID(),
		StartFrame: e.startFrame,
		EndFrame:   d.ctx.frame,
		Elapsed:    e.elapsed,
		Stopped:    stopped,
	}
}

func (d *Driver) emit(rec Record) {
	if d.observer != nil {
		d.safeCall(rec.Label, func() { d.observer(rec) })
	}
}

// compact drops released controllers from the active list, keeping
// registration order.
func (d *Driver) compact() {
	live := d.active[:0]
	for _, h := range d.active {
		if d.entries.Alive(h) {
			live = append(live, h)
		}
	}
	for i := len(live); i < len(d.active); i++ {
		d.active[i] = 0
	}
	d.active = live
}

func (d *Driver) safeCall(label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("finish callback panic recovered",
				zap.String("label", label),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
