package match

import (
	"errors"
	"sort"

	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/model"
)

// ErrEmptyReference is returned when an index would be built from no phrases
var ErrEmptyReference = errors.New("reference database has no phrases")

// Index is an inverted view of a reference database:
// calculator -> value -> reference phrases with that value.
//
// An Index is never mutated after BuildIndex returns, so any number of
// goroutines may read it without locking. To pick up a changed database,
// build a new Index and swap it in.
type Index struct {
	calculators []string
	buckets     map[string]map[int][]string
	values      model.ValueMap
}

// BuildIndex computes every reference phrase's values once and inverts them.
// Phrases are sorted so bucket order does not depend on how the caller
// enumerated the database.
func BuildIndex(set *cipher.Set, phrases []string) (*Index, error) {
	if len(phrases) == 0 {
		return nil, ErrEmptyReference
	}

	sorted := append([]string(nil), phrases...)
	sort.Strings(sorted)

	values := set.Values(sorted)
	names := set.Names()

	buckets := make(map[string]map[int][]string, len(names))
	for _, name := range names {
		buckets[name] = make(map[int][]string)
	}
	for _, pv := range values {
		for _, name := range names {
			v := pv.Values[name]
			buckets[name][v] = append(buckets[name][v], pv.Phrase)
		}
	}

	return &Index{
		calculators: names,
		buckets:     buckets,
		values:      values,
	}, nil
}

// Calculators returns the calculator names the index was built with, in order
func (i *Index) Calculators() []string {
	return append([]string(nil), i.calculators...)
}

// Size returns the number of distinct reference phrases
func (i *Index) Size() int {
	return len(i.values)
}

// Values returns the reference ValueMap (sorted by phrase)
func (i *Index) Values() model.ValueMap {
	return i.values
}

// Lookup returns the reference phrases producing value under calculator.
// The returned slice is a copy.
func (i *Index) Lookup(calculator string, value int) []string {
	bucket := i.bucket(calculator, value)
	if len(bucket) == 0 {
		return nil
	}
	return append([]string(nil), bucket...)
}

func (i *Index) bucket(calculator string, value int) []string {
	byValue, ok := i.buckets[calculator]
	if !ok {
		return nil
	}
	return byValue[value]
}
