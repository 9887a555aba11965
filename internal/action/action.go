// Package action implements pooled, tick-driven units of deferred work and
// the sequence/parallel composites that combine them.
//
// Every unit is a small state machine advanced by Update(dt) once per host
// tick. Units are allocated from per-kind pools owned by a Context, torn down
// exactly once, and handed back to their pool only when the Context flushes
// its recycle queue after the tick's whole update pass. Work is registered
// with a Driver, which returns a Controller for pause/resume/stop.
//
// Nothing in this package is safe for concurrent use. One goroutine (the tick
// loop) owns the Context, its pools and the Driver.
package action

import (
	"fmt"
	"time"

	"github.com/l1jgo/action/internal/core/arena"
)

// State is the lifecycle position of a unit.
type State uint8

const (
	StateNotStarted State = iota
	StateStarted
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarted:
		return "Started"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Kind identifies the concrete unit type and the pool it belongs to.
type Kind uint8

const (
	KindCallback Kind = iota
	KindDelay
	KindDelayFrame
	KindLerp
	KindBridge
	KindSequence
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "Callback"
	case KindDelay:
		return "Delay"
	case KindDelayFrame:
		return "DelayFrame"
	case KindLerp:
		return "Lerp"
	case KindBridge:
		return "Bridge"
	case KindSequence:
		return "Sequence"
	case KindParallel:
		return "Parallel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is the contract every schedulable unit satisfies. The variant set is
// closed: units are created through a Context. External asynchronous work
// plugs in through Bridgeable instead.
type Action interface {
	ID() uint64
	Handle() arena.ID
	Kind() Kind
	State() State
	Label() string
	SetLabel(label string)
	Paused() bool
	// Faulted reports a start or execute body fault that Reset has not cleared.
	Faulted() bool
	Pause()
	Resume()
	// Update advances the unit by dt and reports whether it finished on this call.
	Update(dt time.Duration) bool
	// Reset puts the unit (and any children) back to NotStarted.
	Reset() error

	core() *base
}

// unit is the per-kind body driven by base.Update.
type unit interface {
	Action

	onInit()
	onStart() error
	onExecute(dt time.Duration) error
	onFinish() error
	onTeardown()
}

// Hooks are optional instrumentation callbacks. A nil *Hooks or nil field
// costs one nil check per transition.
type Hooks struct {
	Started  func(id uint64)
	Finished func(id uint64)
}
