package action

import "errors"

var (
	// ErrStale is returned when a controller or reference outlived the slot it pointed at.
	ErrStale = errors.New("action: stale handle")
	// ErrTornDown is returned when an operation targets a unit that was already torn down.
	ErrTornDown = errors.New("action: unit torn down")
	// ErrStarted is returned when appending to a composite that already started.
	ErrStarted = errors.New("action: composite already started")
	ErrNilAction      = errors.New("action: nil unit")
	ErrForeignContext = errors.New("action: unit belongs to another context")
	ErrSelfAppend     = errors.New("action: composite appended to itself")
	ErrCycle          = errors.New("action: append would create a cycle")
	ErrAttached       = errors.New("action: unit already has an owner")
)
