package extract

import "errors"

// State is the orchestrator lifecycle. Exactly one run may be in flight per
// Runner; a second start request fails with ErrAlreadyRunning rather than
// queueing.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrAlreadyRunning is returned by Start while a run is in flight.
var ErrAlreadyRunning = errors.New("extract: a run is already in progress")

// Result is the terminal value of one run. Cancellation is not a failure:
// Success is false but State is StateCancelled and partial output stays on
// disk as-is.
type Result struct {
	Success         bool
	State           State
	OutputPath      string
	FramesProcessed int
	Message         string
}

func successResult(path string, frames int, msg string) Result {
	return Result{Success: true, State: StateCompleted, OutputPath: path, FramesProcessed: frames, Message: msg}
}

func failureResult(msg string) Result {
	return Result{State: StateFailed, Message: msg}
}

func cancelledResult(path string, frames int) Result {
	return Result{State: StateCancelled, OutputPath: path, FramesProcessed: frames, Message: "extraction cancelled"}
}
