package decoder

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"chordd/internal/dictionary"
)

// EventKind discriminates decoder output events.
type EventKind int

const (
	// EventIllegal reports a committed chord with no scheme entry.
	EventIllegal EventKind = iota
	// EventLetters reports a fragment appended to the in-progress word.
	EventLetters
	// EventDeleteLetter reports the last fragment being removed.
	EventDeleteLetter
)

func (k EventKind) String() string {
	switch k {
	case EventIllegal:
		return "illegal"
	case EventLetters:
		return "letters"
	case EventDeleteLetter:
		return "delete-letter"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// InputEvent is one decoder output: what a committed chord did.
type InputEvent struct {
	Kind EventKind
	Text string // appended fragment for EventLetters, empty otherwise
}

// Decoder is the chord state machine. Single-threaded; all state is
// private and mutated only by ProcessInput.
type Decoder struct {
	scheme *Scheme
	dict   *dictionary.Dictionary

	pending       []int
	confirmStreak int
	word          []string
	line          [][]string
}

// New builds a decoder over a validated scheme. dict may be nil when
// prediction runs without a dictionary.
func New(scheme *Scheme, dict *dictionary.Dictionary) *Decoder {
	return &Decoder{scheme: scheme, dict: dict}
}

// ProcessInput feeds one sensor id into the state machine, returning at
// most one event.
//
// A non-confirm id extends the pending chord and resets the confirm
// streak. The confirm id commits the pending chord on the first confirm of
// a streak; further confirms without an intervening non-confirm id are
// ignored, so holding the confirm sensor does not repeat the action.
func (d *Decoder) ProcessInput(id int) *InputEvent {
	if id != d.scheme.confirm {
		d.confirmStreak = 0
		d.pending = append(d.pending, id)
		return nil
	}

	d.confirmStreak++
	if d.confirmStreak != 1 {
		return nil
	}

	action, ok := d.scheme.lookup(d.pending)
	d.pending = d.pending[:0]
	if !ok {
		return &InputEvent{Kind: EventIllegal}
	}

	switch action.Kind {
	case ActionAppend:
		fragment := action.Text
		if len(d.line) == 0 && len(d.word) == 0 {
			fragment = capitalize(fragment)
		}
		d.word = append(d.word, fragment)
		return &InputEvent{Kind: EventLetters, Text: fragment}
	case ActionDelete:
		if len(d.word) > 0 {
			d.word = d.word[:len(d.word)-1]
		}
		return &InputEvent{Kind: EventDeleteLetter}
	case ActionQuestion:
		// Reserved: recognized but inert.
		return nil
	}
	return nil
}

// PredictInput returns every scheme action whose chord extends the current
// pending buffer (the buffer itself included). An empty buffer matches the
// whole scheme.
func (d *Decoder) PredictInput() []Action {
	return d.scheme.prefixRange(d.pending)
}

// Pending returns a copy of the chord buffered since the last commit.
func (d *Decoder) Pending() []int {
	return append([]int(nil), d.pending...)
}

// Line renders the decoded text: completed words then the in-progress
// word, each word its fragments concatenated, words joined by one space.
func (d *Decoder) Line() string {
	words := make([]string, 0, len(d.line)+1)
	for _, fragments := range d.line {
		words = append(words, strings.Join(fragments, ""))
	}
	words = append(words, strings.Join(d.word, ""))
	return strings.Join(words, " ")
}

// Suggestions returns up to n dictionary surface forms extending the
// in-progress word, most frequent first. Empty without a dictionary or an
// in-progress word.
func (d *Decoder) Suggestions(n int) []string {
	if d.dict == nil || len(d.word) == 0 {
		return nil
	}

	entries := d.dict.Suggest(strings.Join(d.word, ""), n)
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Word)
	}
	return words
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
