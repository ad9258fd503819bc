package archetype

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWholeWordsOnly(t *testing.T) {
	s, err := NewScanner([]string{"war", "fire"})
	require.NoError(t, err)

	assert.Empty(t, s.Scan("The warmth of the campfires"))
	assert.Equal(t, []string{"war"}, s.Scan("A trade war begins."))
	assert.Equal(t, []string{"war", "fire"}, s.Scan("Fire and WAR"))
}

func TestScanNonASCIIWordBoundaries(t *testing.T) {
	s, err := NewScanner([]string{"café", "naïve", "war", "Ωmega"})
	require.NoError(t, err)

	assert.Equal(t, []string{"café", "naïve", "war"}, s.Scan("Café society is naïve about war"))
	assert.Equal(t, []string{"Ωmega"}, s.Scan("the ωmega point"))
	assert.Empty(t, s.Scan("cafés and naïveté in the warmth"))
	assert.Empty(t, s.Scan("décafé"))
}

func TestScanLaterOccurrenceMatches(t *testing.T) {
	s, err := NewScanner([]string{"war"})
	require.NoError(t, err)
	assert.Equal(t, []string{"war"}, s.Scan("warmth before the war"))
}

func TestScanCaseInsensitiveKeepsListSpelling(t *testing.T) {
	s, err := NewScanner([]string{"Phoenix"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Phoenix"}, s.Scan("rise of the PHOENIX"))
}

func TestScanListOrderNotTextOrder(t *testing.T) {
	s, err := NewScanner([]string{"flood", "king", "eclipse"})
	require.NoError(t, err)
	assert.Equal(t, []string{"flood", "king", "eclipse"}, s.Scan("An eclipse, a king, a flood"))
}

func TestShortWordsSkipped(t *testing.T) {
	s, err := NewScanner([]string{"ox", "x", "owl"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"owl"}, s.Scan("an ox and an owl"))

	_, err = NewScanner([]string{"a", "be"})
	assert.ErrorIs(t, err, ErrEmptyArchetypes)
}

func TestDuplicatesCollapsed(t *testing.T) {
	s, err := NewScanner([]string{"moon", "moon", "sun"})
	require.NoError(t, err)
	assert.Equal(t, []string{"moon", "sun"}, s.Scan("sun and moon and moon"))
}

func TestSpecialCharactersAreLiteral(t *testing.T) {
	s, err := NewScanner([]string{"9/11", "a.i"})
	require.NoError(t, err)
	assert.Equal(t, []string{"9/11"}, s.Scan("remembering 9/11 today"))
	assert.Empty(t, s.Scan("aXi"))
}

func TestScanCapsAtTwenty(t *testing.T) {
	words := make([]string, 0, 30)
	text := ""
	for i := 0; i < 30; i++ {
		w := fmt.Sprintf("word%02d", i)
		words = append(words, w)
		text += w + " "
	}
	s, err := NewScanner(words)
	require.NoError(t, err)

	hits := s.Scan(text)
	require.Len(t, hits, MaxHits)
	assert.Equal(t, "word00", hits[0])
	assert.Equal(t, "word19", hits[19])
}

func TestScanEmptyText(t *testing.T) {
	s, err := NewScanner([]string{"war"})
	require.NoError(t, err)
	assert.NotNil(t, s.Scan(""))
	assert.Empty(t, s.Scan(""))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "archetypes.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`["war", "phoenix"]`), 0o644))
	words, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"war", "phoenix"}, words)

	yamlPath := filepath.Join(dir, "archetypes.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- flood\n- serpent\n"), 0o644))
	s, err := LoadScanner(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err = Load(empty)
	assert.ErrorIs(t, err, ErrEmptyArchetypes)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"not": "a list"}`), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)
}
