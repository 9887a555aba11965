package action

import "time"

// Callback runs its body once and finishes in the same Update.
type Callback struct {
	base
	fn  func()
	try func() error
}

// Callback allocates a zero-duration unit that invokes fn.
func (c *Context) Callback(fn func()) *Callback {
	u := alloc[Callback, *Callback](c, c.callbacks, KindCallback)
	u.fn = fn
	return u
}

// Try is Callback for bodies that report failure. A returned error is a
// fault: it is logged and the unit stays unfinished until it is Reset.
func (c *Context) Try(fn func() error) *Callback {
	u := alloc[Callback, *Callback](c, c.callbacks, KindCallback)
	u.try = fn
	return u
}

func (u *Callback) onInit() {}

func (u *Callback) onStart() error {
	switch {
	case u.fn != nil:
		u.fn()
	case u.try != nil:
		if err := u.try(); err != nil {
			return err
		}
	}
	u.finish()
	return nil
}

func (u *Callback) onExecute(time.Duration) error { return nil }
func (u *Callback) onFinish() error               { return nil }

func (u *Callback) onTeardown() {
	u.fn = nil
	u.try = nil
}
