package behavior

import "errors"

var (
	// ErrPoolFull rejects an activation when a behavior has no free instance slot.
	ErrPoolFull = errors.New("active instance pool exhausted")
	// ErrNotSupported marks an event no layer consumed, or an operation a
	// behavior does not implement.
	ErrNotSupported = errors.New("not supported")
	// ErrStaleRelease marks a release without a matching active instance.
	ErrStaleRelease = errors.New("release without active instance")
	// ErrUnknownBehavior is returned when a binding references an unknown label
	// or compatible.
	ErrUnknownBehavior = errors.New("unknown behavior")
	// ErrInvalidBinding is returned for malformed binding parameters.
	ErrInvalidBinding = errors.New("invalid binding")
)
