package model

// PhraseValues holds every calculator value computed for one phrase
type PhraseValues struct {
	Phrase string         `json:"phrase"`
	Values map[string]int `json:"values"` // calculator name -> value
}

// ValueMap is the ordered set of phrase values for one batch of phrases.
// Order follows the phrases as they were supplied.
type ValueMap []PhraseValues

// Lookup returns the values for a phrase, if present
func (m ValueMap) Lookup(phrase string) (map[string]int, bool) {
	for _, pv := range m {
		if pv.Phrase == phrase {
			return pv.Values, true
		}
	}
	return nil, false
}

// Phrases returns the phrases in order
func (m ValueMap) Phrases() []string {
	out := make([]string, len(m))
	for i, pv := range m {
		out[i] = pv.Phrase
	}
	return out
}

// MatchRecord asserts that Phrase and DBPhrase produce the same Value under Calculator.
// Phrase is always the query side, DBPhrase always the reference side.
type MatchRecord struct {
	Phrase     string `json:"phrase"`
	DBPhrase   string `json:"db_phrase"`
	Calculator string `json:"calculator"`
	Value      int    `json:"value"`
}

// Numerology holds the date-derived features of a calendar date
type Numerology struct {
	YearSum    int  `json:"year_sum"`
	MonthSum   int  `json:"month_sum"`
	DaySum     int  `json:"day_sum"`
	DateSum    int  `json:"ymd_sum"` // digit sum of YYYYMMDD
	LifePath   int  `json:"life_path"`
	MasterDay  bool `json:"master_day"`
	Palindrome bool `json:"is_palindrome_date"`
}

// Signature is the composite ritual score for one analyzed item
type Signature struct {
	Score           int      `json:"score"`
	HeadlineNumbers []int    `json:"headline_symbolic_numbers"`
	LifePath        int      `json:"life_path"`
	MasterDay       bool     `json:"master_day"`
	Signals         []Signal `json:"signals,omitempty"` // Per-term breakdown of the score
}

// Analysis is everything the engine computes for a single item
type Analysis struct {
	Title      string        `json:"title"`
	Date       string        `json:"date"` // YYYY-MM-DD the numerology was computed for
	Phrases    []string      `json:"phrases"`
	Values     ValueMap      `json:"values"`
	Matches    []MatchRecord `json:"matches"`
	Numerology Numerology    `json:"numerology"`
	Archetypes []string      `json:"archetype_hits"`
	Signature  Signature     `json:"patterns"`
	SunSign    string        `json:"sun_sign,omitempty"`
}
