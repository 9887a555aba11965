package system

import (
	"time"

	"github.com/l1jgo/action/internal/action"
	coresys "github.com/l1jgo/action/internal/core/system"
)

// RecycleSystem returns the tick's torn-down units to their pools at tick
// end. Phase 3 (Cleanup).
type RecycleSystem struct {
	driver   *action.Driver
	recycled uint64
}

func NewRecycleSystem(driver *action.Driver) *RecycleSystem {
	return &RecycleSystem{driver: driver}
}

func (s *RecycleSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *RecycleSystem) Update(_ time.Duration) {
	s.recycled += uint64(s.driver.Flush())
}

func (s *RecycleSystem) Recycled() uint64 { return s.recycled }
