package decoder

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chordd/internal/dictionary"
)

func testScheme(t *testing.T) *Scheme {
	t.Helper()
	scheme, err := NewScheme(map[string][]int{
		"append:a": {0},
		"append:b": {0, 1},
	}, 9, 10)
	require.NoError(t, err)
	return scheme
}

func feed(t *testing.T, d *Decoder, ids ...int) []*InputEvent {
	t.Helper()
	var events []*InputEvent
	for _, id := range ids {
		if ev := d.ProcessInput(id); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		command string
		want    Action
		wantErr bool
	}{
		{command: "delete", want: Action{Kind: ActionDelete}},
		{command: "question", want: Action{Kind: ActionQuestion}},
		{command: "append:th", want: Action{Kind: ActionAppend, Text: "th"}},
		{command: "append:", want: Action{Kind: ActionAppend}},
		{command: "backspace", wantErr: true},
		{command: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			action, err := ParseAction(tt.command)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, action)
		})
	}
}

func TestNewSchemeValidation(t *testing.T) {
	tests := []struct {
		name     string
		commands map[string][]int
		confirm  int
		sensors  int
		wantErr  string
	}{
		{
			name:     "sensor id out of range",
			commands: map[string][]int{"append:a": {4}},
			confirm:  3, sensors: 4,
			wantErr: "references sensor 4",
		},
		{
			name:     "chord contains confirm id",
			commands: map[string][]int{"append:a": {0, 3}},
			confirm:  3, sensors: 4,
			wantErr: "confirm id 3",
		},
		{
			name:     "duplicate chord",
			commands: map[string][]int{"append:a": {0, 1}, "append:b": {0, 1}},
			confirm:  3, sensors: 4,
			wantErr: "defined more than once",
		},
		{
			name:     "confirm out of range",
			commands: map[string][]int{"append:a": {0}},
			confirm:  4, sensors: 4,
			wantErr: "confirm id 4 out of range",
		},
		{
			name:     "bad command",
			commands: map[string][]int{"erase": {0}},
			confirm:  3, sensors: 4,
			wantErr: "unknown scheme command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheme(tt.commands, tt.confirm, tt.sensors)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCommitSingleChord(t *testing.T) {
	d := New(testScheme(t), nil)

	events := feed(t, d, 0, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventLetters, events[0].Kind)
	// First fragment of the first word of an empty line is capitalized.
	assert.Equal(t, "A", events[0].Text)
	assert.Equal(t, "A", d.Line())
}

func TestCommitLongerChord(t *testing.T) {
	d := New(testScheme(t), nil)

	events := feed(t, d, 0, 1, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventLetters, events[0].Kind)
	assert.Equal(t, "B", events[0].Text)
}

func TestCommitUnknownChordIsIllegal(t *testing.T) {
	d := New(testScheme(t), nil)

	events := feed(t, d, 1, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventIllegal, events[0].Kind)
	// The buffer was cleared: a following [0] chord commits normally.
	assert.Empty(t, d.Pending())
	events = feed(t, d, 0, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventLetters, events[0].Kind)
}

func TestConfirmStreakCommitsOnce(t *testing.T) {
	d := New(testScheme(t), nil)

	events := feed(t, d, 0, 9, 9, 9)
	assert.Len(t, events, 1, "held confirm must not repeat the action")

	// A non-confirm id breaks the streak.
	events = feed(t, d, 0, 9)
	assert.Len(t, events, 1)
	assert.Equal(t, "Aa", d.Line())
}

func TestCapitalizationOnlyOnEmptyLine(t *testing.T) {
	d := New(testScheme(t), nil)

	feed(t, d, 0, 9) // "A"
	events := feed(t, d, 0, 9)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Text)
	assert.Equal(t, "Aa", d.Line())
}

func TestDeletePopsLastFragment(t *testing.T) {
	scheme, err := NewScheme(map[string][]int{
		"append:a": {0},
		"delete":   {1},
	}, 9, 10)
	require.NoError(t, err)
	d := New(scheme, nil)

	feed(t, d, 0, 9, 0, 9)
	assert.Equal(t, "Aa", d.Line())

	events := feed(t, d, 1, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventDeleteLetter, events[0].Kind)
	assert.Equal(t, "A", d.Line())

	// Deleting past the start is harmless.
	feed(t, d, 1, 9)
	events = feed(t, d, 1, 9)
	require.Len(t, events, 1)
	assert.Equal(t, EventDeleteLetter, events[0].Kind)
	assert.Equal(t, "", d.Line())
}

func TestQuestionIsIntentionallyInert(t *testing.T) {
	// "question" is reserved: it validates and commits, but produces no
	// event and changes no state. This test pins that down on purpose.
	scheme, err := NewScheme(map[string][]int{
		"append:a": {0},
		"question": {1},
	}, 9, 10)
	require.NoError(t, err)
	d := New(scheme, nil)

	events := feed(t, d, 1, 9)
	assert.Empty(t, events)
	assert.Equal(t, "", d.Line())
	assert.Empty(t, d.Pending())
}

func TestPredictInput(t *testing.T) {
	d := New(testScheme(t), nil)

	// Empty buffer: the whole scheme.
	assert.Len(t, d.PredictInput(), 2)

	// Buffer [0]: both entries share the prefix.
	d.ProcessInput(0)
	predictions := d.PredictInput()
	require.Len(t, predictions, 2)

	// Buffer [0,1]: only append:b remains.
	d.ProcessInput(1)
	predictions = d.PredictInput()
	require.Len(t, predictions, 1)
	assert.Equal(t, Action{Kind: ActionAppend, Text: "b"}, predictions[0])

	// Buffer [1]: nothing extends it.
	feed(t, d, 9) // commit to clear
	d.ProcessInput(1)
	assert.Empty(t, d.PredictInput())
}

func TestPrefixRangeAtDomainMaximum(t *testing.T) {
	// When the buffer's last id cannot be incremented the range is
	// unbounded above. Entries are hand-built since no validated scheme
	// can reference an id this large.
	s := &Scheme{entries: []entry{
		{chord: []int{5}, action: Action{Kind: ActionDelete}},
		{chord: []int{math.MaxInt}, action: Action{Kind: ActionAppend, Text: "x"}},
		{chord: []int{math.MaxInt, 2}, action: Action{Kind: ActionAppend, Text: "y"}},
	}}

	actions := s.prefixRange([]int{math.MaxInt})
	require.Len(t, actions, 2)
	assert.Equal(t, "x", actions[0].Text)
	assert.Equal(t, "y", actions[1].Text)
}

func TestPredictionIsOrdered(t *testing.T) {
	scheme, err := NewScheme(map[string][]int{
		"append:c": {0, 2},
		"append:a": {0},
		"append:b": {0, 1},
	}, 9, 10)
	require.NoError(t, err)
	d := New(scheme, nil)
	d.ProcessInput(0)

	var texts []string
	for _, a := range d.PredictInput() {
		texts = append(texts, a.Text)
	}
	assert.True(t, slices.IsSorted(texts), "predictions follow chord order: %v", texts)
}

func TestSuggestions(t *testing.T) {
	dict := dictionary.New()
	dict.Insert("aap", 10)
	dict.Insert("aardig", 50)
	dict.Insert("boom", 99)

	scheme, err := NewScheme(map[string][]int{"append:aa": {0}}, 9, 10)
	require.NoError(t, err)
	d := New(scheme, dict)

	assert.Empty(t, d.Suggestions(5), "no in-progress word yet")

	feed(t, d, 0, 9)
	// The in-progress word is "Aa"; suggestion lookup is normalized.
	assert.Equal(t, []string{"aardig", "aap"}, d.Suggestions(5))
	assert.Equal(t, []string{"aardig"}, d.Suggestions(1))
}

func TestSuggestionsWithoutDictionary(t *testing.T) {
	d := New(testScheme(t), nil)
	feed(t, d, 0, 9)
	assert.Empty(t, d.Suggestions(5))
}
