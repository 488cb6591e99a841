package engine

import (
	"errors"
	"fmt"
)

// ErrCycleRunning is returned when a cycle trigger arrives while another
// cycle holds the cycle lock. The trigger is rejected, never queued.
var ErrCycleRunning = errors.New("snapshot cycle already running")

// InputError marks one rejected input entity. Entity-level failures never
// abort the cycle: the entity is skipped and counted in cycle statistics.
type InputError struct {
	EntityID string
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("rejected input %s: %s", e.EntityID, e.Reason)
}

// CycleError marks a whole-cycle failure. Nothing from the failed cycle is
// committed and the latest pointer stays on the previous snapshot.
type CycleError struct {
	Phase string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle failed during %s: %v", e.Phase, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
