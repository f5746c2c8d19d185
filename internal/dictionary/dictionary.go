// Package dictionary stores frequency-ranked words under normalized keys
// for the decoder's prediction path.
//
// Several surface forms may share one key: "café" and "cafe" both live
// under "cafe", each with its own frequency. The on-disk form is a
// zlib-compressed JSON object, compatible with existing .dict files.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry is one surface form with its corpus frequency.
type Entry struct {
	Frequency uint64
	Word      string
}

// Entries serialize as [frequency, word] pairs, the historical format.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Frequency, e.Word})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Frequency); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Word)
}

// Dictionary maps normalized keys to their surface forms, preserving
// insertion order within a key.
type Dictionary struct {
	entries map[string][]Entry

	// sortedKeys is rebuilt lazily for prefix suggestion queries.
	sortedKeys []string
	dirty      bool
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string][]Entry)}
}

// stripMarks decomposes and removes combining marks, folding accented
// letters to their base Latin form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key computes the normalization key for a word: lowercase, diacritics
// folded, separators and punctuation removed, the subscript two mapped to
// its digit (chemical formulae show up in frequency lists).
func Key(word string) string {
	key := strings.ToLower(word)
	if folded, _, err := transform.String(stripMarks, key); err == nil {
		key = folded
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '\'', '+', '-', '.', '/', '_', ' ':
			return -1
		case '₂':
			return '2'
		}
		return r
	}, key)
}

// Insert records one surface form under its normalized key, appending to
// any forms already there.
func (d *Dictionary) Insert(word string, frequency uint64) {
	key := Key(word)
	if _, ok := d.entries[key]; !ok {
		d.dirty = true
	}
	d.entries[key] = append(d.entries[key], Entry{Frequency: frequency, Word: word})
}

// Lookup returns the entries stored under word's normalized key, in
// insertion order.
func (d *Dictionary) Lookup(word string) []Entry {
	return d.entries[Key(word)]
}

// Len returns the number of distinct keys.
func (d *Dictionary) Len() int { return len(d.entries) }

// Suggest returns up to n entries whose key starts with the normalized
// prefix, ordered by descending frequency.
func (d *Dictionary) Suggest(prefix string, n int) []Entry {
	if n <= 0 {
		return nil
	}
	key := Key(prefix)

	keys := d.keys()
	i := sort.SearchStrings(keys, key)

	var matches []Entry
	for ; i < len(keys) && strings.HasPrefix(keys[i], key); i++ {
		matches = append(matches, d.entries[keys[i]]...)
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Frequency > matches[b].Frequency
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

func (d *Dictionary) keys() []string {
	if d.dirty || d.sortedKeys == nil {
		d.sortedKeys = make([]string, 0, len(d.entries))
		for key := range d.entries {
			d.sortedKeys = append(d.sortedKeys, key)
		}
		sort.Strings(d.sortedKeys)
		d.dirty = false
	}
	return d.sortedKeys
}

// Save writes the dictionary to path as zlib-compressed JSON.
func (d *Dictionary) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dictionary: create %s: %w", path, err)
	}
	defer file.Close()

	zw, err := zlib.NewWriterLevel(file, zlib.BestCompression)
	if err != nil {
		return fmt.Errorf("dictionary: compress: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(d.entries); err != nil {
		zw.Close()
		return fmt.Errorf("dictionary: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("dictionary: flush: %w", err)
	}
	return file.Close()
}

// Load reads a dictionary written by Save. A missing or unreadable file is
// an error, never a silently empty dictionary.
func Load(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("dictionary: decompress %s: %w", path, err)
	}
	defer zr.Close()

	d := New()
	if err := json.NewDecoder(zr).Decode(&d.entries); err != nil {
		return nil, fmt.Errorf("dictionary: parse %s: %w", path, err)
	}
	d.dirty = true
	return d, nil
}
