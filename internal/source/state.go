// Package source owns the editorial lifecycle of tracked sources: creation
// with their normalized keyword set, content updates, state transitions, and
// the per-author / per-keyword aggregations editors browse by.
package source

import "fmt"

// State is the lifecycle state of a source. Sources start Working; any state
// is reachable from any other, so mistaken closures can be reopened.
type State int

const (
	StateAborted State = -1
	StateWorking State = 0
	StateDone    State = 1
)

func (s State) Valid() bool {
	switch s {
	case StateAborted, StateWorking, StateDone:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateAborted:
		return "aborted"
	case StateWorking:
		return "working"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
