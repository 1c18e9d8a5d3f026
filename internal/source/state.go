package source

// State is the phase of the current poll cycle.
type State int

const (
	StateIdle State = iota
	StateListing
	StateFiltering
	StateLocking
	StateEmitting
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListing:
		return "listing"
	case StateFiltering:
		return "filtering"
	case StateLocking:
		return "locking"
	case StateEmitting:
		return "emitting"
	default:
		return "unknown"
	}
}
