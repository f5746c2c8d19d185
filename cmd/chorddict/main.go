// chorddict builds a compressed dictionary file from a word-frequency list.
//
// Input lines have the form "word=frequency"; the output is the
// zlib-compressed dictionary consumed by chordd's prediction path.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chordd/internal/dictionary"
)

var output string

var rootCmd = &cobra.Command{
	Use:   "chorddict <input>",
	Short: "Build a chordd dictionary file from a word-frequency list",
	Long: `chorddict reads "word=frequency" lines and writes the compressed
dictionary file consumed by chordd's prediction path. Words sharing a
normalized key (accents, casing, punctuation folded away) end up under one
entry, each keeping its own frequency.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		dest := output
		if dest == "" {
			dest = strings.TrimSuffix(source, ".txt") + ".dict"
		}
		return build(source, dest)
	},
	SilenceUsage: true,
}

func build(source, dest string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	dict := dictionary.New()
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word, freq, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected word=frequency, got %q", source, lineNo, line)
		}
		frequency, err := strconv.ParseUint(strings.TrimSpace(freq), 10, 64)
		if err != nil {
			return fmt.Errorf("%s:%d: bad frequency: %w", source, lineNo, err)
		}
		dict.Insert(strings.TrimSpace(word), frequency)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := dict.Save(dest); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d keys)\n", dest, dict.Len())
	return nil
}

func main() {
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .dict extension)")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
