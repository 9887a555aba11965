package action

import "github.com/l1jgo/action/internal/core/arena"

// Ref is a generation-stamped reference to a unit. Once the unit is torn down
// (or its slot handed to a new unit) the Ref resolves to nothing instead of
// aliasing whatever now occupies the pooled memory.
type Ref struct {
	u unit
	h arena.ID
}

func RefOf(a Action) Ref {
	if a == nil {
		return Ref{}
	}
	b := a.core()
	return Ref{u: b.self, h: b.handle}
}

// Get returns the unit if the reference is still live.
func (r Ref) Get() (Action, bool) {
	if !r.live() {
		return nil, false
	}
	return r.u, true
}

func (r Ref) live() bool {
	if r.u == nil {
		return false
	}
	b := r.u.core()
	return b.handle == r.h && !b.tornDown
}
