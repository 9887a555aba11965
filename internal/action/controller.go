package action

import "github.com/l1jgo/action/internal/core/arena"

// Controller is the caller's handle on a started root. It is a value holding
// a generational slot handle: once the root finishes or is stopped the slot is
// released, and every later call is rejected with ErrStale instead of reaching
// a controller that now belongs to someone else.
type Controller struct {
	d *Driver
	h arena.ID
}

// Handle returns the controller's slot handle.
func (c Controller) Handle() arena.ID { return c.h }

// IsFinished reports whether the root finished or was stopped.
func (c Controller) IsFinished() bool {
	return c.d == nil || !c.d.entries.Alive(c.h)
}

func (c Controller) Pause() error {
	e, err := c.entry()
	if err != nil {
		return err
	}
	e.root.Pause()
	return nil
}

func (c Controller) Resume() error {
	e, err := c.entry()
	if err != nil {
		return err
	}
	e.root.Resume()
	return nil
}

func (c Controller) Paused() bool {
	e, err := c.entry()
	return err == nil && e.root.Paused()
}

// Stop cancels the controller: the whole subtree is torn down now, bridged
// primitives are cancelled, and the finish callback never runs.
func (c Controller) Stop() error {
	if c.d == nil {
		return ErrStale
	}
	return c.d.stop(c.h)
}

// Root returns the root unit while the controller is live.
func (c Controller) Root() (Action, bool) {
	e, err := c.entry()
	if err != nil {
		return nil, false
	}
	return e.root, true
}

func (c Controller) entry() (*entry, error) {
	if c.d == nil {
		return nil, ErrStale
	}
	e, ok := c.d.entries.Get(c.h)
	if !ok {
		return nil, ErrStale
	}
	return e, nil
}
