package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{word: "Écoute", want: "ecoute"},
		{word: "café", want: "cafe"},
		{word: "co-op", want: "coop"},
		{word: "it's", want: "its"},
		{word: "CO₂", want: "co2"},
		{word: "e.g.", want: "eg"},
		{word: "voor_beeld", want: "voorbeeld"},
		{word: "a/b test", want: "abtest"},
		{word: "plain", want: "plain"},
		{word: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.word))
		})
	}
}

func TestInsertPreservesOrderWithinKey(t *testing.T) {
	d := New()
	d.Insert("café", 10)
	d.Insert("cafe", 90)
	d.Insert("CAFÉ", 1)

	assert.Equal(t, 1, d.Len())

	entries := d.Lookup("Cafe")
	require.Len(t, entries, 3)
	assert.Equal(t, "café", entries[0].Word)
	assert.Equal(t, "cafe", entries[1].Word)
	assert.Equal(t, "CAFÉ", entries[2].Word)
}

func TestSuggest(t *testing.T) {
	d := New()
	d.Insert("aap", 10)
	d.Insert("aardig", 50)
	d.Insert("aarde", 30)
	d.Insert("boom", 99)

	entries := d.Suggest("aa", 10)
	require.Len(t, entries, 3)
	assert.Equal(t, "aardig", entries[0].Word)
	assert.Equal(t, "aarde", entries[1].Word)
	assert.Equal(t, "aap", entries[2].Word)

	// The limit trims after frequency ordering.
	entries = d.Suggest("aa", 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "aardig", entries[0].Word)

	assert.Empty(t, d.Suggest("zz", 10))
	assert.Empty(t, d.Suggest("aa", 0))
}

func TestSuggestNormalizesPrefix(t *testing.T) {
	d := New()
	d.Insert("école", 40)

	entries := d.Suggest("É", 5)
	require.Len(t, entries, 1)
	assert.Equal(t, "école", entries[0].Word)
}

func TestSuggestSeesLaterInserts(t *testing.T) {
	d := New()
	d.Insert("aap", 10)
	require.Len(t, d.Suggest("a", 5), 1)

	// The sorted key index is rebuilt after an insert.
	d.Insert("avond", 20)
	assert.Len(t, d.Suggest("a", 5), 2)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := New()
	d.Insert("café", 77)
	d.Insert("cafe", 12)
	d.Insert("zien", 1000)

	path := filepath.Join(t.TempDir(), "words.dict")
	require.NoError(t, d.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	entries := loaded.Lookup("cafe")
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Frequency: 77, Word: "café"}, entries[0])
	assert.Equal(t, Entry{Frequency: 12, Word: "cafe"}, entries[1])

	suggestions := loaded.Suggest("z", 5)
	require.Len(t, suggestions, 1)
	assert.Equal(t, uint64(1000), suggestions[0].Frequency)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.dict"))
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mangled.dict")
	require.NoError(t, os.WriteFile(path, []byte("not zlib at all"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
