package keyboard

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// State is the on/off state of a key.
type State string

// Key states.
const (
	StateOn  State = "on"
	StateOff State = "off"
)

// StateOf converts a boolean to a State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// Status is the observed state of one key at query time.
type Status struct {
	Name  string   `json:"name"`
	ID    *big.Int `json:"id"`
	State State    `json:"state"`
}

// On reports whether the key is on.
func (s Status) On() bool {
	return s.State == StateOn
}

// Equal compares all fields.
func (s Status) Equal(o Status) bool {
	if s.Name != o.Name || s.State != o.State {
		return false
	}
	if s.ID == nil || o.ID == nil {
		return s.ID == o.ID
	}
	return s.ID.Cmp(o.ID) == 0
}

// ParseError is returned when a record in the status text matched with an empty name.
type ParseError struct {
	Record string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("status record %q has an empty key name", e.Record)
}

var (
	statusPattern = regexp.MustCompile(`(\d+):\s+((?:\w+\s+)*\w+):\s+(on|off)`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// ParseStatus extracts every "<id>: <name>: on|off" record from text, in order.
// Text between records is ignored. Whitespace runs inside names collapse to one
// space.
func ParseStatus(text string) ([]Status, error) {
	matches := statusPattern.FindAllStringSubmatch(text, -1)
	statuses := make([]Status, 0, len(matches))

	for _, m := range matches {
		name := strings.TrimSpace(spaceRun.ReplaceAllString(m[2], " "))
		if name == "" {
			return nil, &ParseError{Record: m[0]}
		}
		id, ok := new(big.Int).SetString(m[1], 10)
		if !ok {
			return nil, fmt.Errorf("status record %q: invalid id %q", m[0], m[1])
		}
		statuses = append(statuses, Status{Name: name, ID: id, State: State(m[3])})
	}
	return statuses, nil
}

// Find returns the status of key in statuses.
func Find(statuses []Status, key string) (Status, bool) {
	for _, s := range statuses {
		if s.Name == key {
			return s, true
		}
	}
	return Status{}, false
}
