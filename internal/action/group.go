package action

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// group is the child bookkeeping shared by Sequence and Parallel.
type group struct {
	base
	children []Ref
	err      error // first invalid append, surfaced by Err and Driver.Start
}

// Err returns the first composition error recorded by a fluent append.
func (g *group) Err() error { return g.err }

func (g *group) composeErr() error { return g.err }

// Len returns the number of children.
func (g *group) Len() int { return len(g.children) }

// Add appends children and reports the first invalid one. Children before it
// are kept; it and everything after it are not appended and stay owned by
// the caller.
func (g *group) Add(children ...Action) error {
	for _, a := range children {
		if err := g.attach(a); err != nil {
			return err
		}
	}
	return nil
}

// add is the fluent path: the first error sticks, and the rejected unit plus
// every later one is torn down since the caller handed over ownership.
// Rejections on a group that is already running are also logged.
func (g *group) add(children []Action) {
	for _, a := range children {
		var err error
		if g.err == nil {
			if g.err = g.attach(a); g.err == nil {
				continue
			}
			err = g.err
		}
		if g.state != StateNotStarted || g.tornDown {
			if err == nil {
				err = fmt.Errorf("append after failed append: %w", g.err)
			}
			g.ctx.log.Error("append rejected",
				zap.String("label", g.Label()),
				zap.Uint64("id", g.id),
				zap.Error(err),
			)
		}
		g.discard(a)
	}
}

func (g *group) discard(a Action) {
	if a == nil {
		return
	}
	b := a.core()
	if b.ctx != g.ctx || b.tornDown || b.owned() {
		return
	}
	for p := g.self; p != nil; p = p.core().parent {
		if p == b.self {
			return
		}
	}
	g.ctx.recycle(b.self)
}

func (g *group) attach(a Action) error {
	if a == nil {
		return ErrNilAction
	}
	switch {
	case g.tornDown:
		return ErrTornDown
	case g.state != StateNotStarted:
		return fmt.Errorf("append %s to %s: %w", a.Label(), g.Label(), ErrStarted)
	}
	b := a.core()
	switch {
	case b.ctx != g.ctx:
		return ErrForeignContext
	case b.self == g.self:
		return ErrSelfAppend
	case b.tornDown:
		return fmt.Errorf("append %s: %w", b.Label(), ErrTornDown)
	case b.owned():
		return fmt.Errorf("append %s: %w", b.Label(), ErrAttached)
	}
	for p := g.self; p != nil; p = p.core().parent {
		if p == b.self {
			return ErrCycle
		}
	}
	if sub, ok := b.self.(interface{ composeErr() error }); ok && sub.composeErr() != nil {
		return fmt.Errorf("append %s: %w", b.Label(), sub.composeErr())
	}
	b.parent = g.self
	g.children = append(g.children, RefOf(a))
	return nil
}

// resetChildren resets every child; fails without touching anything when a
// child was already released (a race loser, for example).
func (g *group) resetChildren() error {
	for _, r := range g.children {
		if !r.live() {
			return fmt.Errorf("reset %s: %w", g.Label(), ErrTornDown)
		}
	}
	for _, r := range g.children {
		if err := r.u.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// releaseChildren tears down every live child depth-first, started or not.
func (g *group) releaseChildren() {
	for i, r := range g.children {
		if r.live() {
			g.ctx.recycle(r.u)
		}
		g.children[i] = Ref{}
	}
	g.children = g.children[:0]
	g.err = nil
}

func (g *group) onFinish() error { return nil }

// ── fluent builders ──

func (s *Sequence) Append(children ...Action) *Sequence { s.add(children); return s }
func (s *Sequence) Call(fn func()) *Sequence            { return s.Append(s.ctx.Callback(fn)) }
func (s *Sequence) Wait(d time.Duration) *Sequence      { return s.Append(s.ctx.Delay(d, nil)) }
func (s *Sequence) WaitFrames(n uint64) *Sequence       { return s.Append(s.ctx.DelayFrame(n)) }
func (s *Sequence) Bridge(src Bridgeable) *Sequence     { return s.Append(s.ctx.Bridge(src, nil)) }

func (s *Sequence) Lerp(from, to float64, d time.Duration, set func(float64)) *Sequence {
	return s.Append(s.ctx.Lerp(from, to, d, set))
}

func (s *Sequence) Task(fn func(ctx context.Context) error) *Sequence {
	return s.Append(s.ctx.Task(fn, nil))
}

func (p *Parallel) Append(children ...Action) *Parallel { p.add(children); return p }
func (p *Parallel) Call(fn func()) *Parallel            { return p.Append(p.ctx.Callback(fn)) }
func (p *Parallel) Wait(d time.Duration) *Parallel      { return p.Append(p.ctx.Delay(d, nil)) }
func (p *Parallel) WaitFrames(n uint64) *Parallel       { return p.Append(p.ctx.DelayFrame(n)) }
func (p *Parallel) Bridge(src Bridgeable) *Parallel     { return p.Append(p.ctx.Bridge(src, nil)) }

func (p *Parallel) Lerp(from, to float64, d time.Duration, set func(float64)) *Parallel {
	return p.Append(p.ctx.Lerp(from, to, d, set))
}

func (p *Parallel) Task(fn func(ctx context.Context) error) *Parallel {
	return p.Append(p.ctx.Task(fn, nil))
}
