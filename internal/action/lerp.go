package action

import "time"

// Lerp interpolates from -> to over a duration and reports each sample to a
// setter. The last report is always exactly `to`, whatever drift the
// accumulated dt produced.
type Lerp struct {
	base
	from, to float64
	duration time.Duration
	elapsed  time.Duration
	value    float64
	set      func(float64)
	ease     func(float64) float64
}

func (c *Context) Lerp(from, to float64, d time.Duration, set func(float64)) *Lerp {
	u := alloc[Lerp, *Lerp](c, c.lerps, KindLerp)
	u.from = from
	u.to = to
	u.duration = d
	u.value = from
	u.set = set
	return u
}

// Ease installs a curve mapping linear progress [0,1] onto [0,1].
func (u *Lerp) Ease(fn func(float64) float64) *Lerp {
	u.ease = fn
	return u
}

// Value returns the last reported sample.
func (u *Lerp) Value() float64 { return u.value }

func (u *Lerp) onInit() {
	u.elapsed = 0
	u.value = u.from
}

func (u *Lerp) onStart() error {
	u.elapsed = 0
	u.report(u.from)
	if u.duration <= 0 {
		u.finish()
	}
	return nil
}

func (u *Lerp) onExecute(dt time.Duration) error {
	u.elapsed += dt
	if u.elapsed >= u.duration {
		u.finish() // onFinish reports the exact target
		return nil
	}
	t := float64(u.elapsed) / float64(u.duration)
	if u.ease != nil {
		t = u.ease(t)
	}
	u.report(u.from + (u.to-u.from)*clamp01(t))
	return nil
}

func (u *Lerp) onFinish() error {
	u.report(u.to)
	return nil
}

func (u *Lerp) onTeardown() {
	u.set = nil
	u.ease = nil
}

func (u *Lerp) report(v float64) {
	u.value = v
	if u.set != nil {
		u.set(v)
	}
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}

// EaseInOut is a smoothstep curve.
func EaseInOut(t float64) float64 { return t * t * (3 - 2*t) }
