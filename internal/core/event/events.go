package event

import "time"

// UnitStarted is emitted when a unit moves from NotStarted to Started.
type UnitStarted struct {
	ID uint64
}

// UnitFinished is emitted when a unit's completion is delivered.
type UnitFinished struct {
	ID uint64
}

// ControllerFinished is emitted when a driven root leaves the driver.
type ControllerFinished struct {
	Label   string
	RootID  uint64
	Frames  uint64
	Elapsed time.Duration
	Stopped bool
}
