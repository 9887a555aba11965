package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseDispatch Phase = iota // 0: deliver last tick's events
	PhaseUpdate                // 1: advance controllers
	PhasePersist               // 2: journal batches
	PhaseCleanup               // 3: return torn-down units to their pools
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhaseUpdate:
		return "update"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is one stage of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
