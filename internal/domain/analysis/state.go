package analysis

import (
	"fmt"
	"strings"
)

type State string

const (
	StateUnpublished State = "UNPUBLISHED"
	StatePublished   State = "PUBLISHED"
	StateSuppressed  State = "SUPPRESSED"
)

var AllStates = []State{StateUnpublished, StatePublished, StateSuppressed}

// ParseState is case-insensitive.
func ParseState(raw string) (State, error) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllStates {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown analysis state %q", raw)
}
