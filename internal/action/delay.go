package action

import "time"

// Delay waits until more than its duration of dt has accumulated: with dt
// of exactly d the timer is still running after the tick that started it and
// finishes on the next one. A duration <= 0 finishes when started.
type Delay struct {
	base
	target  time.Duration
	elapsed time.Duration
	done    func()
}

// Delay allocates a timer unit. done (optional) runs when the timer finishes,
// never when it is torn down early.
func (c *Context) Delay(d time.Duration, done func()) *Delay {
	u := alloc[Delay, *Delay](c, c.delays, KindDelay)
	u.target = d
	u.done = done
	return u
}

// Elapsed returns the time accumulated since start.
func (u *Delay) Elapsed() time.Duration { return u.elapsed }

func (u *Delay) onInit() { u.elapsed = 0 }

func (u *Delay) onStart() error {
	u.elapsed = 0
	if u.target <= 0 {
		u.finish()
	}
	return nil
}

func (u *Delay) onExecute(dt time.Duration) error {
	u.elapsed += dt
	if u.elapsed > u.target {
		u.finish()
	}
	return nil
}

func (u *Delay) onFinish() error {
	if u.done != nil {
		u.done()
	}
	return nil
}

func (u *Delay) onTeardown() {
	u.done = nil
	u.target = 0
}

// DelayFrame waits for the host frame counter to advance by a fixed count.
type DelayFrame struct {
	base
	frames uint64
	from   uint64
}

func (c *Context) DelayFrame(n uint64) *DelayFrame {
	u := alloc[DelayFrame, *DelayFrame](c, c.frames, KindDelayFrame)
	u.frames = n
	return u
}

func (u *DelayFrame) onInit() { u.from = 0 }

func (u *DelayFrame) onStart() error {
	u.from = u.ctx.frame
	if u.frames == 0 {
		u.finish()
	}
	return nil
}

func (u *DelayFrame) onExecute(time.Duration) error {
	if u.ctx.frame-u.from >= u.frames {
		u.finish()
	}
	return nil
}

func (u *DelayFrame) onFinish() error { return nil }
func (u *DelayFrame) onTeardown()     { u.frames = 0 }
