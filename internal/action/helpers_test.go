package action

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const frameDT = 16 * time.Millisecond

func newTestDriver(t *testing.T) (*Context, *Driver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	ctx := NewContext(log)
	return ctx, NewDriver(ctx, log), logs
}

func mustStart(t *testing.T, d *Driver, a Action, onFinish func()) Controller {
	t.Helper()
	c, err := d.Start(a, onFinish)
	if err != nil {
		t.Fatalf("Start(%s): %v", a.Label(), err)
	}
	return c
}

// finishTick drives c with dt until it finishes and returns the 1-based tick
// it finished on, or 0 if it did not finish within limit ticks.
func finishTick(d *Driver, c Controller, dt time.Duration, limit int) int {
	for tick := 1; tick <= limit; tick++ {
		d.Tick(dt)
		if c.IsFinished() {
			return tick
		}
	}
	return 0
}
