package automation

import "fmt"

type State int

const (
	StateIdle State = iota
	StateCheckingSession
	StateListingTrades
	StateClassifying
	StateAccepting
	StateConfirming
	StateSleeping
	StateError
	StateStopped
	StateSuspended
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateCheckingSession: "checking_session",
	StateListingTrades:   "listing_trades",
	StateClassifying:     "classifying",
	StateAccepting:       "accepting",
	StateConfirming:      "confirming",
	StateSleeping:        "sleeping",
	StateError:           "error",
	StateStopped:         "stopped",
	StateSuspended:       "suspended",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
