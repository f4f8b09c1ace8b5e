// Package frontier models the shared URL frontier: the crawl state of every
// known URL and the rule that merges competing claims about it.
package frontier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State is the crawl state of a URL. Values are persisted as small integers
// and only ever advance.
type State int16

// URL states in the order they may be reached.
const (
	// StateNew means one participant has reported the URL.
	StateNew State = 0
	// StateConfirmed means a second, distinct participant reported it too.
	StateConfirmed State = 1
	// StateAssigned means the URL was handed to a participant to crawl.
	StateAssigned State = 2
	// StateCrawled means at least one participant crawled it. Terminal.
	StateCrawled State = 3
)

var stateNames = map[State]string{
	StateNew:       "new",
	StateConfirmed: "confirmed",
	StateAssigned:  "assigned",
	StateCrawled:   "crawled",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int16(s))
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// MarshalJSON renders the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(s.String())
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return b, nil
}

// UnmarshalJSON accepts a state name or its integer value.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseState(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var n int16
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}
	if !State(n).Valid() {
		return fmt.Errorf("unknown state %d", n)
	}
	*s = State(n)
	return nil
}

// ParseState converts a state name back into a State.
func ParseState(name string) (State, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for state, stateName := range stateNames {
		if stateName == needle {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// NextState merges a proposed state into the stored one. A NEW claim from a
// participant other than the stored owner corroborates a NEW row into
// CONFIRMED. Otherwise the higher of the two states wins, so a row never
// regresses and CRAWLED stays CRAWLED.
func NextState(current, proposed State, proposerDiffers bool) State {
	if current == StateNew && proposed == StateNew && proposerDiffers {
		return StateConfirmed
	}
	if proposed > current {
		return proposed
	}
	return current
}
