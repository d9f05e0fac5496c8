package pipeline

// State is the lifecycle of the query system. Transitions:
// Uninitialized -> Loading -> Ready -> Rebuilding -> Ready, with Failed
// reachable from Loading and Rebuilding. All transitions happen under the
// pipeline's single writer lock; queries read a snapshot.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateRebuilding
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRebuilding:
		return "rebuilding"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// initializing reports whether an initialization pass is in flight.
func (s State) initializing() bool {
	return s == StateLoading || s == StateRebuilding
}
