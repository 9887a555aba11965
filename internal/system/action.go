package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/action"
	coresys "github.com/l1jgo/action/internal/core/system"
)

// ActionSystem runs the driver's update pass once per tick. Phase 1 (Update).
type ActionSystem struct {
	driver   *action.Driver
	log      *zap.Logger
	slowTick time.Duration
	ticks    uint64
}

func NewActionSystem(driver *action.Driver, slowTick time.Duration, log *zap.Logger) *ActionSystem {
	return &ActionSystem{driver: driver, slowTick: slowTick, log: log}
}

func (s *ActionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ActionSystem) Update(dt time.Duration) {
	s.ticks++
	start := time.Now()
	s.driver.Advance(dt)
	if took := time.Since(start); s.slowTick > 0 && took > s.slowTick {
		s.log.Warn("slow update pass",
			zap.Uint64("frame", s.driver.Context().Frame()),
			zap.Int("controllers", s.driver.Len()),
			zap.Duration("took", took),
		)
	}
}

// Ticks returns how many passes have run.
func (s *ActionSystem) Ticks() uint64 { return s.ticks }
