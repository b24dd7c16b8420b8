package simevent

import "errors"

// Error taxonomy for the event subsystem. Structural errors are fatal to
// the current step; action failures are accumulated in EventChangeResult
// and never surface as Go errors.
var (
	// ErrInvalidArgument reports a nil object adopted or an invalid id
	// passed to an accessor.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidIndex reports an id outside the registry's range.
	ErrInvalidIndex = errors.New("index out of range")

	// ErrMissing reports a lookup on an in-range id whose slot is empty.
	ErrMissing = errors.New("no object for id")

	// ErrPrecondition reports a dispatcher call with an empty triggered
	// set, or registry growth during an active step.
	ErrPrecondition = errors.New("precondition violated")

	// ErrInvariant reports internal corruption found during a cache
	// rebuild. Diagnostic; should be impossible.
	ErrInvariant = errors.New("invariant broken")
)
