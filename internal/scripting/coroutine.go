package scripting

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/action/internal/action"
)

// Coroutine runs a global Lua function as a coroutine under an action.Bridge.
// Each poll resumes it once: a yield means "not yet", a return means
// finished. Polls happen on the tick goroutine, which also owns the VM.
type Coroutine struct {
	e    *Engine
	name string
	fn   *lua.LFunction
	args []lua.LValue

	th        *lua.LState
	cancel    context.CancelFunc
	started   bool
	cancelled bool
	resumes   int
}

// Coroutine prepares name(args...) for bridging. The function must exist.
func (e *Engine) Coroutine(name string, args ...any) (*Coroutine, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("lua function %q not found", name)
	}
	largs, err := toLValues(args)
	if err != nil {
		return nil, fmt.Errorf("coroutine %s: %w", name, err)
	}
	return &Coroutine{e: e, name: name, fn: fn, args: largs}, nil
}

// Launch creates a fresh thread, so the same Coroutine can run again after
// its bridge is reset.
func (c *Coroutine) Launch() action.CancelHandle {
	c.th, c.cancel = c.e.vm.NewThread()
	c.started = false
	c.cancelled = false
	c.resumes = 0
	return action.CancelFunc(c.stop)
}

func (c *Coroutine) PollFinished() (bool, error) {
	if c.cancelled || c.th == nil {
		return false, nil
	}
	var args []lua.LValue
	if !c.started {
		args = c.args
		c.started = true
	}
	c.resumes++
	st, err, _ := c.e.vm.Resume(c.th, c.fn, args...)
	switch st {
	case lua.ResumeYield:
		return false, nil
	case lua.ResumeError:
		c.th = nil
		return false, fmt.Errorf("coroutine %s: %w", c.name, err)
	default:
		c.th = nil
		return true, nil
	}
}

// Resumes returns how many times the current run was resumed.
func (c *Coroutine) Resumes() int { return c.resumes }

func (c *Coroutine) stop() {
	if c.cancelled {
		return
	}
	c.cancelled = true
	if c.cancel != nil {
		c.cancel()
	}
	c.th = nil
}
