package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/archetype"
	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/numerology"
)

func newEngine(t *testing.T, reference, words []string, clock func() time.Time) *Engine {
	t.Helper()

	idx, err := match.BuildIndex(cipher.Default(), reference)
	require.NoError(t, err)
	scanner, err := archetype.NewScanner(words)
	require.NoError(t, err)

	e, err := New(Options{
		Index:      idx,
		Archetypes: scanner,
		Clock:      clock,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return e
}

func date(t *testing.T, s string) *numerology.Date {
	t.Helper()
	d, err := numerology.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestNewRequiresCollaborators(t *testing.T) {
	scanner, err := archetype.NewScanner([]string{"war"})
	require.NoError(t, err)
	_, err = New(Options{Archetypes: scanner})
	assert.ErrorIs(t, err, ErrNoReference)

	idx, err := match.BuildIndex(cipher.Default(), []string{"Disaster"})
	require.NoError(t, err)
	_, err = New(Options{Index: idx})
	assert.ErrorIs(t, err, ErrNoArchetypes)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	e := newEngine(t, []string{"Disaster"}, []string{"disaster", "blast", "flood"}, nil)

	got, err := e.Analyze(Item{
		Title:   "Disaster kills 33 in 911 blast",
		Phrases: []string{"Disaster"},
		Date:    date(t, "2024-09-11"),
	})
	require.NoError(t, err)

	// The phrase matches itself once per calculator
	require.Len(t, got.Matches, 5)
	for i, name := range cipher.Default().Names() {
		assert.Equal(t, model.MatchRecord{
			Phrase:     "Disaster",
			DBPhrase:   "Disaster",
			Calculator: name,
			Value:      got.Values[0].Values[name],
		}, got.Matches[i])
	}
	assert.Equal(t, 95, got.Values[0].Values[cipher.EnglishOrdinal])

	assert.Equal(t, "2024-09-11", got.Date)
	assert.Equal(t, 1, got.Numerology.LifePath)
	assert.True(t, got.Numerology.MasterDay)
	assert.Equal(t, "Virgo", got.SunSign)

	assert.Equal(t, []string{"disaster", "blast"}, got.Archetypes)

	// 2*1 headline (33) + 5 matches + 1 master day
	assert.Equal(t, []int{33}, got.Signature.HeadlineNumbers)
	assert.Equal(t, 8, got.Signature.Score)
}

func TestAnalyzeDefaultsDateToClock(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 22, 23, 0, 0, 0, time.UTC) }
	e := newEngine(t, []string{"Moon"}, []string{"moon"}, clock)

	got, err := e.Analyze(Item{Title: "Quiet day"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-22", got.Date)
	assert.True(t, got.Numerology.MasterDay)
	assert.Empty(t, got.Matches)
	assert.NotNil(t, got.Matches)
}

func TestAnalyzeInvalidDate(t *testing.T) {
	e := newEngine(t, []string{"Moon"}, []string{"moon"}, nil)

	_, err := e.Analyze(Item{Title: "x", Date: &numerology.Date{Year: 2023, Month: 2, Day: 29}})
	assert.ErrorIs(t, err, numerology.ErrInvalidDate)
}

func TestAnalyzeArchetypeWindow(t *testing.T) {
	e := newEngine(t, []string{"Moon"}, []string{"serpent", "eclipse"}, nil)

	body := "eclipse " + strings.Repeat("x", DefaultArchetypeWindow) + " serpent"
	got, err := e.Analyze(Item{Title: "Night", Body: body, Date: date(t, "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, []string{"eclipse"}, got.Archetypes)
}

func TestAnalyzeTitleOnlyScan(t *testing.T) {
	e := newEngine(t, []string{"Moon"}, []string{"serpent"}, nil)

	got, err := e.Analyze(Item{Title: "The serpent returns", Date: date(t, "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, []string{"serpent"}, got.Archetypes)
}

func TestAnalyzeDuplicatePhrases(t *testing.T) {
	e := newEngine(t, []string{"Moon"}, []string{"moon"}, nil)

	got, err := e.Analyze(Item{
		Title:   "Moon",
		Phrases: []string{"Moon", "Sun", "Moon"},
		Date:    date(t, "2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Moon", "Sun"}, got.Phrases)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	e := newEngine(t, []string{"Disaster", "Fire", "Moon", "Flood"}, []string{"fire"}, nil)
	item := Item{
		Title:   "Fire and flood: 11 towns",
		Body:    "A fire swept through.",
		Phrases: []string{"Fire", "Flood", "Moon"},
		Date:    date(t, "2022-02-22"),
	}

	first, err := e.Analyze(item)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Analyze(item)
			if err != nil {
				t.Error(err)
				return
			}
			if diff := cmp.Diff(first, got); diff != "" {
				t.Errorf("Analyze mismatch (-first +got):\n%s", diff)
			}
		}()
	}
	wg.Wait()
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "ab", truncate("ab", 5))
	assert.Equal(t, "aé", truncate("aé", 2))
	assert.Equal(t, "aéb", truncate("aébc", 3))
	assert.Equal(t, "ééé", truncate("éééé", 3))
}

func TestArchetypeWindowCountsCharacters(t *testing.T) {
	idx, err := match.BuildIndex(cipher.Default(), []string{"Disaster"})
	require.NoError(t, err)
	scanner, err := archetype.NewScanner([]string{"flood"})
	require.NoError(t, err)
	// 11 characters, 16 bytes
	e, err := New(Options{Index: idx, Archetypes: scanner, ArchetypeWindow: 11})
	require.NoError(t, err)

	got, err := e.Analyze(Item{Title: "x", Body: "ééééé flood later", Date: date(t, "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, []string{"flood"}, got.Archetypes)
}
