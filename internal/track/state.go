package track

// State is the tracking condition of the coordinate reader.
type State int

const (
	// StateSearching means no coordinate has been accepted yet.
	StateSearching State = iota
	// StateLocked means coordinates are being read and validated against
	// the previous position.
	StateLocked
	// StateLost means a previously locked position stopped reading for too
	// many consecutive ticks.
	StateLost
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "SEARCHING"
	case StateLocked:
		return "LOCKED"
	case StateLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}
