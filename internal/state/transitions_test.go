package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to manual date", from: StateIdle, to: StateManualDate, expected: true},
		{name: "idle to manual duration", from: StateIdle, to: StateManualDuration, expected: true},
		{name: "manual date to manual duration", from: StateManualDate, to: StateManualDuration, expected: true},
		{name: "manual duration back to idle", from: StateManualDuration, to: StateIdle, expected: true},
		{name: "manual duration to manual date invalid", from: StateManualDuration, to: StateManualDate, expected: false},
		{name: "manual date to itself invalid", from: StateManualDate, to: StateManualDate, expected: false},
		{name: "unknown state to manual date invalid", from: State("unknown"), to: StateManualDate, expected: false},
		{name: "any state to idle reset", from: State("whatever"), to: StateIdle, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
