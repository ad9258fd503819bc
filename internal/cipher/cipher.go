// Package cipher maps text phrases to gematria-style integers.
//
// Every calculator works on the normalized letter sequence of a phrase:
// ASCII letters only, upper-cased. A phrase without letters is worth 0
// under every calculator.
package cipher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/decode/internal/model"
)

// Calculator names
const (
	EnglishOrdinal   = "english_ordinal"
	FullReduction    = "full_reduction"
	ReverseOrdinal   = "reverse_ordinal"
	ReverseReduction = "reverse_reduction"
	Sumerian         = "sumerian"
)

// SumerianFactor is the constant the sumerian calculator multiplies ordinal values by
const SumerianFactor = 6

var (
	ErrUnknownCalculator   = errors.New("unknown calculator")
	ErrDuplicateCalculator = errors.New("duplicate calculator")
)

// Func computes a value from an already normalized letter sequence
type Func func(letters string) int

// Calculator is a named, pure phrase-to-integer rule
type Calculator struct {
	name string
	fn   Func
}

// New binds a rule to a name
func New(name string, fn Func) Calculator {
	return Calculator{name: name, fn: fn}
}

// Name returns the registered name
func (c Calculator) Name() string {
	return c.name
}

// Value normalizes the phrase and applies the rule
func (c Calculator) Value(phrase string) int {
	letters := Normalize(phrase)
	if letters == "" {
		return 0
	}
	return c.fn(letters)
}

// Normalize drops every non-ASCII-letter and upper-cases the rest
func Normalize(phrase string) string {
	var b strings.Builder
	b.Grow(len(phrase))
	for i := 0; i < len(phrase); i++ {
		c := phrase[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c)
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		}
	}
	return b.String()
}

func ordinal(c byte) int {
	return int(c-'A') + 1
}

func reverse(c byte) int {
	return 26 - int(c-'A')
}

// reduce folds a letter value into 1..9, with 9 standing in for multiples of 9
func reduce(n int) int {
	return (n-1)%9 + 1
}

func englishOrdinal(letters string) int {
	total := 0
	for i := 0; i < len(letters); i++ {
		total += ordinal(letters[i])
	}
	return total
}

func fullReduction(letters string) int {
	total := 0
	for i := 0; i < len(letters); i++ {
		total += reduce(ordinal(letters[i]))
	}
	return total
}

func reverseOrdinal(letters string) int {
	total := 0
	for i := 0; i < len(letters); i++ {
		total += reverse(letters[i])
	}
	return total
}

func reverseReduction(letters string) int {
	total := 0
	for i := 0; i < len(letters); i++ {
		total += reduce(reverse(letters[i]))
	}
	return total
}

func sumerian(letters string) int {
	return englishOrdinal(letters) * SumerianFactor
}

// Set is an ordered registry of calculators. Its order is the order
// matches are reported in.
type Set struct {
	calculators []Calculator
	byName      map[string]int
}

// NewSet registers calculators in the given order
func NewSet(calcs ...Calculator) (*Set, error) {
	s := &Set{byName: make(map[string]int, len(calcs))}
	for _, c := range calcs {
		if c.name == "" || c.fn == nil {
			return nil, fmt.Errorf("invalid calculator %q", c.name)
		}
		if _, exists := s.byName[c.name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCalculator, c.name)
		}
		s.byName[c.name] = len(s.calculators)
		s.calculators = append(s.calculators, c)
	}
	return s, nil
}

// Default returns the five built-in calculators in declared order
func Default() *Set {
	s, _ := NewSet(
		New(EnglishOrdinal, englishOrdinal),
		New(FullReduction, fullReduction),
		New(ReverseOrdinal, reverseOrdinal),
		New(ReverseReduction, reverseReduction),
		New(Sumerian, sumerian),
	)
	return s
}

// Names returns calculator names in declared order
func (s *Set) Names() []string {
	names := make([]string, len(s.calculators))
	for i, c := range s.calculators {
		names[i] = c.name
	}
	return names
}

// Len returns the number of calculators
func (s *Set) Len() int {
	return len(s.calculators)
}

// Get looks up a calculator by name
func (s *Set) Get(name string) (Calculator, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Calculator{}, false
	}
	return s.calculators[idx], true
}

// Subset returns a new set with only the named calculators, in the order given.
// An empty name list returns the receiver.
func (s *Set) Subset(names ...string) (*Set, error) {
	if len(names) == 0 {
		return s, nil
	}
	calcs := make([]Calculator, 0, len(names))
	for _, name := range names {
		c, ok := s.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCalculator, name)
		}
		calcs = append(calcs, c)
	}
	return NewSet(calcs...)
}

// Compute applies every calculator to one phrase
func (s *Set) Compute(phrase string) map[string]int {
	letters := Normalize(phrase)
	values := make(map[string]int, len(s.calculators))
	for _, c := range s.calculators {
		if letters == "" {
			values[c.name] = 0
			continue
		}
		values[c.name] = c.fn(letters)
	}
	return values
}

// Values computes a ValueMap for phrases. Repeated phrases keep their
// first position only.
func (s *Set) Values(phrases []string) model.ValueMap {
	out := make(model.ValueMap, 0, len(phrases))
	seen := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, model.PhraseValues{Phrase: p, Values: s.Compute(p)})
	}
	return out
}
