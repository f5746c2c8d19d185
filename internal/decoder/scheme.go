// Package decoder turns ordered sensor-id sequences (chords) into text and
// editing events. It is pure and synchronous: one id in, at most one event
// out, no knowledge of where the ids come from.
package decoder

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// ActionKind discriminates what committing a chord does.
type ActionKind int

const (
	// ActionAppend appends a text fragment to the in-progress word.
	ActionAppend ActionKind = iota
	// ActionDelete removes the last fragment of the in-progress word.
	ActionDelete
	// ActionQuestion is reserved. It parses and validates like any other
	// action but committing it does nothing.
	ActionQuestion
)

// Action is one scheme entry's effect.
type Action struct {
	Kind ActionKind
	Text string // fragment for ActionAppend, empty otherwise
}

func (a Action) String() string {
	switch a.Kind {
	case ActionAppend:
		return fmt.Sprintf("append:%s", a.Text)
	case ActionDelete:
		return "delete"
	case ActionQuestion:
		return "question"
	}
	return fmt.Sprintf("Action(%d)", int(a.Kind))
}

// ParseAction parses a scheme command string: "delete", "question", or
// "append:<fragment>".
func ParseAction(command string) (Action, error) {
	switch {
	case command == "delete":
		return Action{Kind: ActionDelete}, nil
	case command == "question":
		return Action{Kind: ActionQuestion}, nil
	case strings.HasPrefix(command, "append:"):
		return Action{Kind: ActionAppend, Text: strings.TrimPrefix(command, "append:")}, nil
	}
	return Action{}, fmt.Errorf("decoder: unknown scheme command %q", command)
}

type entry struct {
	chord  []int
	action Action
}

// Scheme maps chords to actions. Entries are kept sorted by lexicographic
// chord order so exact lookup and prefix-range prediction are both
// logarithmic.
type Scheme struct {
	entries []entry
	confirm int
}

// NewScheme builds and validates a scheme from command strings mapped to
// chords. Construction fails, naming the offender, when a chord references
// a sensor id outside [0, sensorCount), contains the confirm id, or is
// defined by more than one command.
func NewScheme(commands map[string][]int, confirm, sensorCount int) (*Scheme, error) {
	if confirm < 0 || confirm >= sensorCount {
		return nil, fmt.Errorf("decoder: confirm id %d out of range (have %d sensors)", confirm, sensorCount)
	}

	entries := make([]entry, 0, len(commands))
	for command, chord := range commands {
		action, err := ParseAction(command)
		if err != nil {
			return nil, err
		}

		for _, id := range chord {
			if id < 0 || id >= sensorCount {
				return nil, fmt.Errorf("decoder: chord %v for %q references sensor %d, have %d sensors",
					chord, command, id, sensorCount)
			}
			if id == confirm {
				return nil, fmt.Errorf("decoder: chord %v for %q contains the confirm id %d",
					chord, command, confirm)
			}
		}

		entries = append(entries, entry{chord: slices.Clone(chord), action: action})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return slices.Compare(a.chord, b.chord)
	})
	for i := 1; i < len(entries); i++ {
		if slices.Equal(entries[i-1].chord, entries[i].chord) {
			return nil, fmt.Errorf("decoder: chord %v defined more than once", entries[i].chord)
		}
	}

	return &Scheme{entries: entries, confirm: confirm}, nil
}

// Confirm returns the designated confirm sensor id.
func (s *Scheme) Confirm() int { return s.confirm }

// Len returns the number of scheme entries.
func (s *Scheme) Len() int { return len(s.entries) }

// lookup finds the action for an exact chord.
func (s *Scheme) lookup(chord []int) (Action, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return slices.Compare(s.entries[i].chord, chord) >= 0
	})
	if i < len(s.entries) && slices.Equal(s.entries[i].chord, chord) {
		return s.entries[i].action, true
	}
	return Action{}, false
}

// prefixRange returns every action whose chord has prefix as a prefix, as
// an ordered range query: lower bound is the prefix itself (inclusive),
// upper bound is the prefix with its last id incremented (exclusive), or
// unbounded when the prefix is empty or its last id is at the domain
// maximum. Cost is O(log n + matches).
func (s *Scheme) prefixRange(prefix []int) []Action {
	lo := 0
	hi := len(s.entries)

	if len(prefix) > 0 {
		lo = sort.Search(len(s.entries), func(i int) bool {
			return slices.Compare(s.entries[i].chord, prefix) >= 0
		})
		if last := prefix[len(prefix)-1]; last < math.MaxInt {
			upper := append(slices.Clone(prefix[:len(prefix)-1]), last+1)
			hi = sort.Search(len(s.entries), func(i int) bool {
				return slices.Compare(s.entries[i].chord, upper) >= 0
			})
		}
	}

	actions := make([]Action, 0, hi-lo)
	for _, e := range s.entries[lo:hi] {
		actions = append(actions, e.action)
	}
	return actions
}
