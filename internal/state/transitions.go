package state

// validTransitions contains the permitted transitions other than resetting to idle.
var validTransitions = map[State][]State{
	StateIdle: {
		StateManualDate,
		StateManualDuration,
	},
	StateManualDate: {
		StateManualDuration,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
