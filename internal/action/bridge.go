package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CancelHandle stops an external primitive. Cancel must be idempotent and
// safe to call after the primitive already completed.
type CancelHandle interface {
	Cancel()
}

// CancelFunc adapts a plain function to CancelHandle.
type CancelFunc func()

func (f CancelFunc) Cancel() {
	if f != nil {
		f()
	}
}

// Bridgeable is an externally driven asynchronous primitive (a goroutine, a
// script coroutine, an I/O callback) that can run under a Bridge unit.
// PollFinished is only ever called from the tick goroutine.
type Bridgeable interface {
	Launch() CancelHandle
	PollFinished() (bool, error)
}

// Bridge adapts a Bridgeable to the unit contract. It launches the primitive
// on start, polls it every tick, and always cancels it on teardown so a late
// completion can never land in a recycled unit.
type Bridge struct {
	base
	src    Bridgeable
	cancel CancelHandle
	done   func(error)
	err    error
}

// Bridge allocates a unit running src. done (optional) receives the
// primitive's error, nil on a clean finish, and never runs after teardown.
func (c *Context) Bridge(src Bridgeable, done func(error)) *Bridge {
	u := alloc[Bridge, *Bridge](c, c.bridges, KindBridge)
	u.src = src
	u.done = done
	return u
}

// Task runs fn on its own goroutine under a Bridge unit. The context passed
// to fn is cancelled when the unit is torn down.
func (c *Context) Task(fn func(ctx context.Context) error, done func(error)) *Bridge {
	return c.Bridge(NewTask(fn), done)
}

// Err returns the fault the primitive finished with, if any.
func (u *Bridge) Err() error { return u.err }

func (u *Bridge) onInit() {
	if u.cancel != nil {
		u.cancel.Cancel() // Reset of a running bridge
	}
	u.cancel = nil
	u.err = nil
}

func (u *Bridge) onStart() error {
	if u.src == nil {
		u.finish()
		return nil
	}
	cancel, err := u.launch()
	u.cancel = cancel
	if err != nil {
		u.fail(err)
	}
	return nil
}

func (u *Bridge) onExecute(time.Duration) error {
	if u.src == nil {
		u.finish()
		return nil
	}
	ok, err := u.poll()
	if err != nil {
		u.fail(err)
		return nil
	}
	if ok {
		u.finish()
	}
	return nil
}

func (u *Bridge) onFinish() error {
	if u.done != nil {
		u.done(u.err)
	}
	return nil
}

func (u *Bridge) onTeardown() {
	if u.cancel != nil {
		u.cancel.Cancel()
	}
	u.cancel = nil
	u.src = nil
	u.done = nil
	u.err = nil
}

// fail maps a primitive fault to a normal finish so a broken bridge never
// stalls the siblings that follow it.
func (u *Bridge) fail(err error) {
	u.err = err
	u.ctx.log.Warn("bridge fault",
		zap.String("label", u.Label()),
		zap.Uint64("id", u.id),
		zap.Error(err),
	)
	u.finish()
}

func (u *Bridge) launch() (h CancelHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("launch panic: %v", r)
		}
	}()
	return u.src.Launch(), nil
}

func (u *Bridge) poll() (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll panic: %v", r)
		}
	}()
	return u.src.PollFinished()
}

// ErrTaskPanic wraps a panic raised inside a Task body.
var ErrTaskPanic = errors.New("action: task panicked")

// Task is a Bridgeable running a function on its own goroutine.
// Each Launch gets a fresh run, so a Task can be relaunched after Reset.
type Task struct {
	fn  func(ctx context.Context) error
	run *taskRun
}

type taskRun struct {
	cancel context.CancelFunc
	once   sync.Once
	done   atomic.Bool
	err    error // written before done is set
}

func NewTask(fn func(ctx context.Context) error) *Task {
	return &Task{fn: fn}
}

func (t *Task) Launch() CancelHandle {
	ctx, cancel := context.WithCancel(context.Background())
	run := &taskRun{cancel: cancel}
	t.run = run
	fn := t.fn
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
			run.err = err
			run.done.Store(true)
			cancel()
		}()
		if fn != nil {
			err = fn(ctx)
		}
	}()
	return run
}

func (t *Task) PollFinished() (bool, error) {
	run := t.run
	if run == nil || !run.done.Load() {
		return false, nil
	}
	return true, run.err
}

// Cancel may race with the goroutine finishing; the run only ever
// completes once and the unit observes it on the tick goroutine.
func (r *taskRun) Cancel() {
	r.once.Do(r.cancel)
}
