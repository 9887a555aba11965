package action

import (
	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/core/arena"
)

// Stats is a snapshot of pool and recycle activity.
type Stats struct {
	Allocated uint64 // units constructed fresh
	Reused    uint64 // units handed out from a free list
	Recycled  uint64 // units returned to their pool by Flush
	Faults    uint64 // body faults caught at the Update boundary
	Live      int    // allocated and not yet torn down
	Pending   int    // torn down, waiting for Flush
	Pooled    int    // recycled units idle on the free lists
	Slots     int    // pool slots ever built, across kinds
}

// Context owns the per-kind pools, the identity counter, the frame counter
// and the deferred recycle queue. It replaces package-level pool state: every
// allocation and recycle goes through exactly one Context, owned by the tick
// goroutine.
type Context struct {
	log   *zap.Logger
	hooks *Hooks

	nextID uint64
	frame  uint64
	inPass bool

	callbacks  *arena.Arena[Callback]
	delays     *arena.Arena[Delay]
	frames     *arena.Arena[DelayFrame]
	lerps      *arena.Arena[Lerp]
	bridges    *arena.Arena[Bridge]
	sequences  *arena.Arena[Sequence]
	parallels  *arena.Arena[Parallel]
	queue      []unit
	torn       uint64
	allocCount uint64
	stats      Stats
}

func NewContext(log *zap.Logger) *Context {
	return &Context{
		log:       log.Named("action"),
		callbacks: arena.New[Callback](64),
		delays:    arena.New[Delay](64),
		frames:    arena.New[DelayFrame](16),
		lerps:     arena.New[Lerp](32),
		bridges:   arena.New[Bridge](16),
		sequences: arena.New[Sequence](32),
		parallels: arena.New[Parallel](16),
		queue:     make([]unit, 0, 64),
	}
}

// SetHooks installs (or with nil, removes) the instrumentation hooks.
func (c *Context) SetHooks(h *Hooks) { c.hooks = h }

// Frame returns the host frame counter, advanced once per Driver pass.
func (c *Context) Frame() uint64 { return c.frame }

func (c *Context) Stats() Stats {
	s := c.stats
	s.Live = int(c.allocCount - c.torn)
	s.Pending = len(c.queue)
	s.Pooled = c.callbacks.Free() + c.delays.Free() + c.frames.Free() + c.lerps.Free() +
		c.bridges.Free() + c.sequences.Free() + c.parallels.Free()
	s.Slots = c.callbacks.Cap() + c.delays.Cap() + c.frames.Cap() + c.lerps.Cap() +
		c.bridges.Cap() + c.sequences.Cap() + c.parallels.Cap()
	return s
}

// Release tears down a unit that was never handed to a composite or a Driver.
// Releasing an already torn-down unit is a no-op.
func (c *Context) Release(a Action) error {
	if a == nil {
		return ErrNilAction
	}
	b := a.core()
	if b.ctx != c {
		return ErrForeignContext
	}
	if b.tornDown {
		return nil
	}
	if b.owned() {
		return ErrAttached
	}
	c.recycle(b.self)
	return nil
}

// Flush hands every torn-down unit back to its pool. It must run after the
// tick's update pass; a call from inside the pass is refused.
func (c *Context) Flush() int {
	if c.inPass {
		c.log.Warn("flush refused during update pass", zap.Int("pending", len(c.queue)))
		return 0
	}
	n := len(c.queue)
	for i, u := range c.queue {
		c.release(u)
		c.queue[i] = nil
	}
	c.queue = c.queue[:0]
	c.stats.Recycled += uint64(n)
	return n
}

// recycle sets the teardown guard, runs onTeardown and queues the unit for
// the next Flush. A second call is a silent no-op.
func (c *Context) recycle(u unit) {
	b := u.core()
	if b.tornDown {
		return
	}
	b.tornDown = true
	b.teardown()
	c.torn++
	c.queue = append(c.queue, u)
}

func (c *Context) release(u unit) {
	b := u.core()
	h := b.handle
	var ok bool
	switch b.kind {
	case KindCallback:
		ok = c.callbacks.Release(h)
	case KindDelay:
		ok = c.delays.Release(h)
	case KindDelayFrame:
		ok = c.frames.Release(h)
	case KindLerp:
		ok = c.lerps.Release(h)
	case KindBridge:
		ok = c.bridges.Release(h)
	case KindSequence:
		ok = c.sequences.Release(h)
	case KindParallel:
		ok = c.parallels.Release(h)
	}
	if !ok {
		c.log.Error("recycle of stale slot",
			zap.String("kind", b.kind.String()),
			zap.Uint64("id", b.id),
			zap.Uint32("slot", h.Index()),
		)
	}
}

// alloc pops a unit of kind from pool (or builds one), stamps a fresh
// identity and runs onInit.
func alloc[T any, P interface {
	*T
	unit
}](c *Context, pool *arena.Arena[T], kind Kind) P {
	h, item, reused := pool.Acquire(newSlot[T])
	if reused {
		c.stats.Reused++
	} else {
		c.stats.Allocated++
	}
	c.allocCount++
	c.nextID++

	u := P(item)
	u.core().init(c, u, kind, h, c.nextID)
	u.onInit()
	return u
}

func newSlot[T any]() *T { return new(T) }

func (c *Context) fault(b *base, step string, err error) {
	c.stats.Faults++
	c.log.Error("action fault",
		zap.String("label", b.Label()),
		zap.Uint64("id", b.id),
		zap.String("step", step),
		zap.Error(err),
	)
}

func (c *Context) notifyStarted(id uint64) {
	if h := c.hooks; h != nil && h.Started != nil {
		h.Started(id)
	}
}

func (c *Context) notifyFinished(id uint64) {
	if h := c.hooks; h != nil && h.Finished != nil {
		h.Finished(id)
	}
}
