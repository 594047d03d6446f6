package router

// State is the router's navigation state.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the router. Module is empty in Idle; Err is set
// only in Failed.
type Status struct {
	State  State
	Module string
	Err    error
}
