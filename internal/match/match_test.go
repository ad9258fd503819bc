package match

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/model"
)

func ordinalOnly(t *testing.T) *cipher.Set {
	t.Helper()
	s, err := cipher.Default().Subset(cipher.EnglishOrdinal)
	require.NoError(t, err)
	return s
}

func TestBuildIndexRejectsEmpty(t *testing.T) {
	_, err := BuildIndex(cipher.Default(), nil)
	assert.ErrorIs(t, err, ErrEmptyReference)
}

func TestIndexBucketsAreSorted(t *testing.T) {
	// ABC, CC and F all have ordinal 6
	idx, err := BuildIndex(ordinalOnly(t), []string{"F", "CC", "ABC", "ZZ"})
	require.NoError(t, err)

	assert.Equal(t, 4, idx.Size())
	assert.Equal(t, []string{"ABC", "CC", "F"}, idx.Lookup(cipher.EnglishOrdinal, 6))
	assert.Nil(t, idx.Lookup(cipher.EnglishOrdinal, 7))
	assert.Nil(t, idx.Lookup(cipher.Sumerian, 6))
}

func TestLookupReturnsCopy(t *testing.T) {
	idx, err := BuildIndex(ordinalOnly(t), []string{"ABC", "F"})
	require.NoError(t, err)

	got := idx.Lookup(cipher.EnglishOrdinal, 6)
	got[0] = "mutated"
	assert.Equal(t, []string{"ABC", "F"}, idx.Lookup(cipher.EnglishOrdinal, 6))
}

func TestMatchSameCalculatorOnly(t *testing.T) {
	idx, err := BuildIndex(cipher.Default(), []string{"ABC"})
	require.NoError(t, err)

	values := cipher.Default().Values([]string{"CC"})
	records := Match(values, idx)

	// CC and ABC share ordinal 6 and sumerian 36; the reductions differ
	// only by accident, so check every record is a same-calculator equality.
	require.NotEmpty(t, records)
	ref := idx.Values()[0].Values
	for _, r := range records {
		assert.Equal(t, "CC", r.Phrase)
		assert.Equal(t, "ABC", r.DBPhrase)
		assert.Equal(t, ref[r.Calculator], r.Value)
	}

	assert.Contains(t, records, model.MatchRecord{Phrase: "CC", DBPhrase: "ABC", Calculator: cipher.EnglishOrdinal, Value: 6})
	assert.Contains(t, records, model.MatchRecord{Phrase: "CC", DBPhrase: "ABC", Calculator: cipher.Sumerian, Value: 36})
}

func TestMatchRoleAsymmetry(t *testing.T) {
	idx, err := BuildIndex(ordinalOnly(t), []string{"ABC"})
	require.NoError(t, err)

	records := Match(ordinalOnly(t).Values([]string{"F"}), idx)
	want := []model.MatchRecord{{Phrase: "F", DBPhrase: "ABC", Calculator: cipher.EnglishOrdinal, Value: 6}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchDeterministicOrder(t *testing.T) {
	set := cipher.Default()
	refs := []string{"Zeta", "ABC", "F", "CC", "Mars", "Venus", "Saturn"}
	idx, err := BuildIndex(set, refs)
	require.NoError(t, err)

	values := set.Values([]string{"F", "CC", "Disaster", "ABC"})
	first := Match(values, idx)

	for i := 0; i < 10; i++ {
		// Rebuild from a different enumeration order
		shuffled := append([]string(nil), refs[i%len(refs):]...)
		shuffled = append(shuffled, refs[:i%len(refs)]...)
		other, err := BuildIndex(set, shuffled)
		require.NoError(t, err)

		if diff := cmp.Diff(first, Match(values, other)); diff != "" {
			t.Fatalf("order changed with reference enumeration (-first +now):\n%s", diff)
		}
	}

	// query order, then calculator order
	require.NotEmpty(t, first)
	assert.Equal(t, "F", first[0].Phrase)
	assert.Equal(t, cipher.EnglishOrdinal, first[0].Calculator)
	assert.Equal(t, "ABC", first[0].DBPhrase)
}

func TestMatchNoLettersMatchesZero(t *testing.T) {
	idx, err := BuildIndex(ordinalOnly(t), []string{"2024", "ABC"})
	require.NoError(t, err)

	records := Match(ordinalOnly(t).Values([]string{"911"}), idx)
	require.Len(t, records, 1)
	assert.Equal(t, model.MatchRecord{Phrase: "911", DBPhrase: "2024", Calculator: cipher.EnglishOrdinal, Value: 0}, records[0])

	idx, err = BuildIndex(ordinalOnly(t), []string{"ABC"})
	require.NoError(t, err)
	assert.Empty(t, Match(ordinalOnly(t).Values([]string{"911"}), idx))
}

func TestMatchIgnoresCalculatorsMissingFromIndex(t *testing.T) {
	idx, err := BuildIndex(ordinalOnly(t), []string{"ABC"})
	require.NoError(t, err)

	values := model.ValueMap{{Phrase: "q", Values: map[string]int{"custom": 6}}}
	assert.Empty(t, Match(values, idx))
	assert.Nil(t, Match(values, nil))
}

func TestTopAndFilters(t *testing.T) {
	records := []model.MatchRecord{
		{Phrase: "a", Value: 33},
		{Phrase: "b", Value: 11},
		{Phrase: "c", Value: 33},
	}
	assert.Len(t, Top(records, 2), 2)
	assert.Len(t, Top(records, 10), 3)
	assert.Len(t, Top(records, -1), 3)
	assert.Equal(t, "a", Top(records, 1)[0].Phrase)

	assert.True(t, HasValue(records, 11))
	assert.False(t, HasValue(records, 22))
}

func TestIndexConcurrentReaders(t *testing.T) {
	set := cipher.Default()
	refs := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		refs = append(refs, fmt.Sprintf("phrase %c%c", 'A'+i%26, 'A'+i/26))
	}
	idx, err := BuildIndex(set, refs)
	require.NoError(t, err)

	values := set.Values([]string{"Disaster", "Mars", "Federal Reserve"})
	want := Match(values, idx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Match(values, idx))
		}()
	}
	wg.Wait()
}
