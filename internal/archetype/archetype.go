// Package archetype finds curated symbolic words in free text.
package archetype

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	// MinWordLength is the shortest archetype word that is scanned for
	MinWordLength = 3
	// MaxHits caps the number of hits returned per text
	MaxHits = 20
)

// ErrEmptyArchetypes is returned when an archetype list has no usable words
var ErrEmptyArchetypes = errors.New("archetype list is empty")

type pattern struct {
	word string
	re   *regexp.Regexp
}

// Scanner matches a fixed archetype list against text.
// It holds only compiled patterns and is safe for concurrent use.
type Scanner struct {
	patterns []pattern
}

// NewScanner compiles one case-insensitive literal pattern per archetype.
// Words shorter than MinWordLength and repeated words are dropped.
func NewScanner(words []string) (*Scanner, error) {
	s := &Scanner{}
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < MinWordLength || seen[w] {
			continue
		}
		seen[w] = true

		// RE2 \b is ASCII only, word boundaries are checked in wholeWord
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(strings.ToLower(w)))
		if err != nil {
			return nil, fmt.Errorf("compile archetype %q: %w", w, err)
		}
		s.patterns = append(s.patterns, pattern{word: w, re: re})
	}

	if len(s.patterns) == 0 {
		return nil, ErrEmptyArchetypes
	}
	return s, nil
}

// Len returns the number of scanned words
func (s *Scanner) Len() int {
	return len(s.patterns)
}

// Scan returns the archetypes found in text, in list order, at most MaxHits
func (s *Scanner) Scan(text string) []string {
	hits := []string{}
	if text == "" {
		return hits
	}
	for _, p := range s.patterns {
		if p.matches(text) {
			hits = append(hits, p.word)
			if len(hits) == MaxHits {
				break
			}
		}
	}
	return hits
}

func (p pattern) matches(text string) bool {
	for _, loc := range p.re.FindAllStringIndex(text, -1) {
		if wholeWord(text, loc[0], loc[1]) {
			return true
		}
	}
	return false
}

// wholeWord reports whether text[start:end] has a Unicode word boundary
// on both sides: the rune outside differs in wordness from the rune inside.
func wholeWord(text string, start, end int) bool {
	if start == end {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text[start:])
	last, _ := utf8.DecodeLastRuneInString(text[:end])

	before := false
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		before = isWordRune(r)
	}
	after := false
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		after = isWordRune(r)
	}
	return before != isWordRune(first) && after != isWordRune(last)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Load reads an archetype list from a JSON array or YAML sequence.
// A missing or empty list is a configuration error.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}

	var words []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &words)
	default:
		err = json.Unmarshal(data, &words)
	}
	if err != nil {
		return nil, fmt.Errorf("parse archetypes %s: %w", path, err)
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyArchetypes)
	}
	return words, nil
}

// LoadScanner reads path and compiles a scanner from it
func LoadScanner(path string) (*Scanner, error) {
	words, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewScanner(words)
}
