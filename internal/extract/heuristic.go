package extract

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/decode/internal/model"
)

const (
	// MaxPhrases caps the phrases handed to the cipher engine per article
	MaxPhrases = 20
	// PhraseWindow is how much body text is searched for phrases
	PhraseWindow = 4000
	// FiveWWindow is how much body text the 5W summary reads
	FiveWWindow = 200000
	// MaxWhat caps the "what" keywords of a 5W digest
	MaxWhat = 6
	// MaxFiveW caps every other 5W list
	MaxFiveW = 5
)

// WhyMarkers are the words that make a sentence a candidate "why"
var WhyMarkers = []string{"because", "due to", "amid", "after", "as", "to", "so that", "over", "for", "in order to"}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "from": true, "by": true,
	"with": true, "as": true, "is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "he": true, "she": true, "they": true, "we": true, "you": true, "i": true,
	"his": true, "her": true, "their": true, "our": true, "not": true, "no": true, "after": true,
	"over": true, "into": true, "out": true, "up": true, "down": true, "new": true, "says": true,
	"said": true, "has": true, "have": true, "had": true, "will": true, "would": true,
	"can": true, "could": true, "may": true, "might": true, "than": true, "then": true,
	"who": true, "what": true, "when": true, "where": true, "why": true, "how": true,
	"amid": true, "about": true, "more": true, "most": true, "all": true, "also": true,
}

var placePrepositions = map[string]bool{
	"in": true, "at": true, "from": true, "across": true, "near": true, "outside": true, "inside": true,
}

var calendarWords = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true, "aug": true,
	"sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true,
}

var (
	tokenRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’.&-]*`)
	whenRe  = regexp.MustCompile(`(?i)\b(?:` +
		`(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?` +
		`|\d{1,2}(?:st|nd|rd|th)?\s+(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)(?:\s+\d{4})?` +
		`|\d{4}-\d{2}-\d{2}` +
		`|(?:last|next|this)\s+(?:week|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday)` +
		`|(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)` +
		`|yesterday|today|tonight|tomorrow` +
		`|(?:19|20)\d{2}` +
		`)\b`)
)

// Heuristic extracts phrases and a 5W digest from capitalization and word
// patterns alone. It needs no model and is safe for concurrent use.
type Heuristic struct{}

// NewHeuristic returns the rule-based extractor
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name identifies the extractor in logs
func (h *Heuristic) Name() string {
	return "heuristic"
}

// Close releases nothing
func (h *Heuristic) Close() error {
	return nil
}

type run struct {
	text  string
	start int  // byte offset
	after bool // preceded by a place preposition
}

type token struct {
	text  string
	start int
}

func tokenize(text string) []token {
	locs := tokenRe.FindAllStringIndex(text, -1)
	out := make([]token, 0, len(locs))
	for _, l := range locs {
		out = append(out, token{text: strings.TrimRight(text[l[0]:l[1]], ".'’-&"), start: l[0]})
	}
	return out
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

// capitalizedRuns finds sequences of capitalized words, allowing "of" and
// "the" between them ("Bank of England"). Leading stopwords are dropped.
func capitalizedRuns(text string) []run {
	tokens := tokenize(text)
	var runs []run

	for i := 0; i < len(tokens); {
		if !isCapitalized(tokens[i].text) {
			i++
			continue
		}

		j := i + 1
		for j < len(tokens) {
			if isCapitalized(tokens[j].text) && !sentenceBreak(text, tokens[j-1], tokens[j]) {
				j++
				continue
			}
			lower := strings.ToLower(tokens[j].text)
			if (lower == "of" || lower == "the" || lower == "de") && j+1 < len(tokens) && isCapitalized(tokens[j+1].text) {
				j += 2
				continue
			}
			break
		}

		words := tokens[i:j]
		for len(words) > 0 && stopwords[strings.ToLower(words[0].text)] {
			words = words[1:]
		}
		if len(words) > 0 {
			parts := make([]string, len(words))
			for k, w := range words {
				parts[k] = w.text
			}
			prev := ""
			if i > 0 {
				prev = strings.ToLower(tokens[i-1].text)
			}
			runs = append(runs, run{
				text:  strings.Join(parts, " "),
				start: words[0].start,
				after: placePrepositions[prev],
			})
		}
		i = j
	}

	return runs
}

// sentenceBreak reports whether a sentence ends between two adjacent tokens
func sentenceBreak(text string, a, b token) bool {
	between := text[a.start+len(a.text) : b.start]
	return strings.ContainsAny(between, ".!?\n:;")
}

func phraseKey(s string) string {
	return strings.ToLower(CollapseSpace(s))
}

// Phrases returns candidate phrases for cipher matching: capitalized runs
// from the title and the start of the body, then the title's content words.
// Case-insensitive duplicates are dropped and at most MaxPhrases returned.
func (h *Heuristic) Phrases(_ context.Context, title, text string) ([]string, error) {
	seen := make(map[string]bool)
	out := []string{}

	add := func(p string) bool {
		key := phraseKey(p)
		if utf8.RuneCountInString(key) <= 2 || seen[key] || calendarWords[key] {
			return len(out) < MaxPhrases
		}
		seen[key] = true
		out = append(out, p)
		return len(out) < MaxPhrases
	}

	for _, r := range capitalizedRuns(title + "\n" + Truncate(text, PhraseWindow)) {
		if !add(r.text) {
			return out, nil
		}
	}

	for _, w := range titleKeywords(title) {
		if !add(w) {
			return out, nil
		}
	}

	return out, nil
}

// titleKeywords returns title words longer than two letters that are not stopwords
func titleKeywords(title string) []string {
	var out []string
	for _, t := range tokenize(title) {
		lower := strings.ToLower(t.text)
		if utf8.RuneCountInString(t.text) <= 2 || stopwords[lower] {
			continue
		}
		if !containsLetter(t.text) {
			continue
		}
		out = append(out, t.text)
	}
	return out
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// FiveW builds a who/what/when/where/why digest
func (h *Heuristic) FiveW(_ context.Context, title, text string) (model.FiveW, error) {
	text = Truncate(text, FiveWWindow)
	runs := capitalizedRuns(text)

	var people, places []string
	for _, r := range runs {
		key := phraseKey(r.text)
		if calendarWords[key] || utf8.RuneCountInString(key) <= 1 {
			continue
		}
		if r.after {
			places = append(places, r.text)
		} else {
			people = append(people, r.text)
		}
	}

	where := mostCommon(places, MaxFiveW)
	whereSet := make(map[string]bool, len(where))
	for _, w := range where {
		whereSet[phraseKey(w)] = true
	}
	var who []string
	for _, p := range mostCommon(people, MaxFiveW*2) {
		if !whereSet[phraseKey(p)] && len(who) < MaxFiveW {
			who = append(who, p)
		}
	}

	when := mostCommon(whenRe.FindAllString(text, -1), MaxFiveW)
	parsed := []string{}
	for _, w := range when {
		if t, err := ParseDateTime(strings.TrimSuffix(w, ".")); err == nil {
			parsed = append(parsed, t.Format("2006-01-02"))
		}
	}

	sentences := SplitSentences(text)

	what := dedupeFold(titleKeywords(title))
	if len(what) == 0 && len(sentences) > 0 {
		what = dedupeFold(titleKeywords(sentences[0]))
	}
	if len(what) > MaxWhat {
		what = what[:MaxWhat]
	}

	return model.FiveW{
		Who:          nonNil(who),
		What:         nonNil(what),
		WhenMentions: nonNil(when),
		WhenParsed:   parsed,
		Where:        nonNil(where),
		Why:          findWhy(sentences),
	}, nil
}

// findWhy returns the first of the first three sentences containing a why marker
func findWhy(sentences []string) string {
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	for _, s := range sentences {
		padded := " " + strings.ToLower(s) + " "
		for _, m := range WhyMarkers {
			if strings.Contains(padded, " "+m+" ") {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// mostCommon returns up to k distinct values by descending count, ties by first appearance
func mostCommon(values []string, k int) []string {
	counts := make(map[string]int)
	first := make(map[string]int)
	var order []string
	for i, v := range values {
		if _, ok := counts[v]; !ok {
			first[v] = i
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return first[order[i]] < first[order[j]]
	})

	if len(order) > k {
		order = order[:k]
	}
	return order
}

func dedupeFold(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
