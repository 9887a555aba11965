package action

import "time"

// Parallel updates all of its children every tick.
//
// Wait-all mode finishes when every child has finished. Finished children are
// swapped to the front so each scan starts at the first unfinished one.
// Race mode finishes with the first child to finish and tears every other
// child down in the same tick, before the parallel itself reports finished.
type Parallel struct {
	group
	finished int
	waitAll  bool
}

// Parallel allocates a wait-all composite.
func (c *Context) Parallel(children ...Action) *Parallel {
	return c.newParallel(true, children)
}

// Race allocates a composite that finishes with its first finished child.
func (c *Context) Race(children ...Action) *Parallel {
	return c.newParallel(false, children)
}

func (c *Context) newParallel(waitAll bool, children []Action) *Parallel {
	u := alloc[Parallel, *Parallel](c, c.parallels, KindParallel)
	u.waitAll = waitAll
	u.add(children)
	return u
}

// FinishedCount returns how many children have finished so far.
func (p *Parallel) FinishedCount() int { return p.finished }

// Reset re-initializes every child. A race that already tore down its losers
// cannot be reset.
func (p *Parallel) Reset() error {
	if p.tornDown {
		return ErrTornDown
	}
	if err := p.resetChildren(); err != nil {
		return err
	}
	return p.base.Reset()
}

func (p *Parallel) onInit() { p.finished = 0 }

func (p *Parallel) onStart() error {
	p.finished = 0
	if len(p.children) == 0 {
		p.finish()
	}
	return nil
}

func (p *Parallel) onExecute(dt time.Duration) error {
	for i := p.finished; i < len(p.children); i++ {
		r := p.children[i]
		if r.live() && !r.u.Update(dt) {
			continue
		}
		if p.tornDown {
			return nil
		}
		if !p.waitAll {
			p.cancelLosers(i)
			p.finish()
			return nil
		}
		p.children[i], p.children[p.finished] = p.children[p.finished], r
		p.finished++
	}
	if p.finished == len(p.children) {
		p.finish()
	}
	return nil
}

// cancelLosers tears down every child except the winner right away, so
// bridged primitives are cancelled before the race reports finished.
func (p *Parallel) cancelLosers(winner int) {
	for i, r := range p.children {
		if i != winner && r.live() {
			p.ctx.recycle(r.u)
		}
	}
}

func (p *Parallel) onTeardown() {
	p.releaseChildren()
	p.finished = 0
}
