package action

import (
	"fmt"
	"time"

	"github.com/l1jgo/action/internal/core/arena"
)

// base carries the bookkeeping shared by every unit kind and drives the
// per-kind body through Update.
type base struct {
	ctx    *Context
	self   unit
	handle arena.ID
	id     uint64
	kind   Kind
	label  string

	state     State
	paused    bool
	tornDown  bool
	faulted   bool // a start or execute body faulted; cleared by Reset
	delivered bool // onFinish already ran

	parent unit // owning composite, nil for roots
	rooted bool // registered with a Driver
}

func (b *base) core() *base       { return b }
func (b *base) ID() uint64        { return b.id }
func (b *base) Handle() arena.ID  { return b.handle }
func (b *base) Kind() Kind        { return b.kind }
func (b *base) State() State      { return b.state }
func (b *base) Paused() bool      { return b.paused }
func (b *base) Pause()            { b.paused = true }
func (b *base) Resume()           { b.paused = false }
func (b *base) SetLabel(s string) { b.label = s }
func (b *base) Finished() bool    { return b.state == StateFinished }
func (b *base) TornDown() bool    { return b.tornDown }
func (b *base) Faulted() bool     { return b.faulted }
func (b *base) finish()           { b.state = StateFinished }
func (b *base) owned() bool       { return b.parent != nil || b.rooted }

// Label returns the diagnostic name: the explicit label or the kind name.
func (b *base) Label() string {
	if b.label != "" {
		return b.label
	}
	return b.kind.String()
}

// init resets lifecycle flags when the unit comes out of its pool.
func (b *base) init(ctx *Context, self unit, kind Kind, handle arena.ID, id uint64) {
	b.ctx = ctx
	b.self = self
	b.kind = kind
	b.handle = handle
	b.id = id
	b.label = ""
	b.state = StateNotStarted
	b.paused = false
	b.tornDown = false
	b.faulted = false
	b.delivered = false
	b.parent = nil
	b.rooted = false
}

// Update runs the state machine:
//
//	NotStarted -> onStart; finished here means a zero-duration unit.
//	            otherwise Started, and the same call continues into onExecute(dt).
//	Started    -> onExecute(dt).
//	Finished   -> deliver onFinish if not yet delivered.
//
// A fault inside a start or execute body is logged once and latches the
// unit: it stays unfinished and no body runs again until Reset.
func (b *base) Update(dt time.Duration) bool {
	if b.tornDown || b.paused || b.faulted {
		return false
	}

	switch b.state {
	case StateFinished:
		return b.complete()
	case StateNotStarted:
		if !b.start() {
			b.faulted = true
			return false
		}
		if b.tornDown {
			return false
		}
		if b.state == StateFinished {
			return b.complete()
		}
		b.state = StateStarted
		b.ctx.notifyStarted(b.id)
	}

	if !b.execute(dt) {
		b.faulted = true
		return false
	}
	if b.tornDown {
		return false
	}
	if b.state == StateFinished {
		return b.complete()
	}
	return false
}

// Reset returns a live unit to NotStarted without reallocating it.
func (b *base) Reset() error {
	if b.tornDown {
		return ErrTornDown
	}
	b.state = StateNotStarted
	b.paused = false
	b.faulted = false
	b.delivered = false
	b.self.onInit()
	return nil
}

func (b *base) complete() bool {
	if !b.delivered {
		b.delivered = true
		b.deliver()
		b.ctx.notifyFinished(b.id)
	}
	return true
}

func (b *base) start() (ok bool) {
	defer b.recoverFault("start", &ok)
	if err := b.self.onStart(); err != nil {
		b.ctx.fault(b, "start", err)
		return false
	}
	return true
}

func (b *base) execute(dt time.Duration) (ok bool) {
	defer b.recoverFault("execute", &ok)
	if err := b.self.onExecute(dt); err != nil {
		b.ctx.fault(b, "execute", err)
		return false
	}
	return true
}

// deliver runs onFinish. A fault here is logged; the unit stays finished.
func (b *base) deliver() {
	var ok bool
	defer b.recoverFault("finish", &ok)
	if err := b.self.onFinish(); err != nil {
		b.ctx.fault(b, "finish", err)
	}
}

func (b *base) teardown() {
	var ok bool
	defer b.recoverFault("teardown", &ok)
	b.self.onTeardown()
}

func (b *base) recoverFault(step string, ok *bool) {
	if r := recover(); r != nil {
		b.ctx.fault(b, step, fmt.Errorf("panic: %v", r))
		*ok = false
	}
}
