package action

import "time"

// Sequence runs its children one after another. The cursor only moves
// forward; the sequence is finished once it has passed the last child.
type Sequence struct {
	group
	cursor int
}

func (c *Context) Sequence(children ...Action) *Sequence {
	u := alloc[Sequence, *Sequence](c, c.sequences, KindSequence)
	u.add(children)
	return u
}

// Cursor returns the index of the active child.
func (s *Sequence) Cursor() int { return s.cursor }

// Reset re-initializes every child and rewinds the cursor.
func (s *Sequence) Reset() error {
	if s.tornDown {
		return ErrTornDown
	}
	if err := s.resetChildren(); err != nil {
		return err
	}
	return s.base.Reset()
}

func (s *Sequence) onInit() { s.cursor = 0 }

func (s *Sequence) onStart() error {
	s.cursor = 0
	if len(s.children) == 0 {
		s.finish()
	}
	return nil
}

// onExecute drains the sequence: every child that finishes hands over to the
// next one inside the same call with dt = 0, so a run of zero-duration
// children completes in a single tick.
func (s *Sequence) onExecute(dt time.Duration) error {
	for s.cursor < len(s.children) {
		r := s.children[s.cursor]
		if r.live() && !r.u.Update(dt) {
			return nil
		}
		if s.tornDown {
			return nil // stopped from inside the child
		}
		s.cursor++
		dt = 0
	}
	s.finish()
	return nil
}

func (s *Sequence) onTeardown() {
	s.releaseChildren()
	s.cursor = 0
}
