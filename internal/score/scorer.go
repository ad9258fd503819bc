package score

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ppiankov/decode/internal/model"
)

// Maximal digit runs bounded by non-word characters. "911" counts, "A1" does not.
var headlineNumberRe = regexp.MustCompile(`\b\d+\b`)

// Scorer calculates the ritual signature and generates signals
type Scorer struct {
	symbolic map[int]bool
	bonus    map[int]bool
}

// NewScorer creates a scorer from a symbolic-number set and a life-path bonus set.
// Nil sets fall back to the defaults.
func NewScorer(symbolic, lifePathBonus []int) *Scorer {
	if symbolic == nil {
		symbolic = model.DefaultSymbolicNumbers
	}
	if lifePathBonus == nil {
		lifePathBonus = model.DefaultLifePathBonus
	}
	return &Scorer{
		symbolic: toSet(symbolic),
		bonus:    toSet(lifePathBonus),
	}
}

// DefaultScorer uses the built-in number sets
func DefaultScorer() *Scorer {
	return NewScorer(nil, nil)
}

func toSet(nums []int) map[int]bool {
	set := make(map[int]bool, len(nums))
	for _, n := range nums {
		set[n] = true
	}
	return set
}

// HeadlineNumbers returns the symbolic numbers found in a title, in title order.
// Duplicates are kept.
func (s *Scorer) HeadlineNumbers(title string) []int {
	found := []int{}
	for _, tok := range headlineNumberRe.FindAllString(title, -1) {
		n, err := strconv.Atoi(tok)
		if err != nil {
			// Longer than int; cannot be in the set
			continue
		}
		if s.symbolic[n] {
			found = append(found, n)
		}
	}
	return found
}

// Calculate computes the signature score with a signal per term
func (s *Scorer) Calculate(title string, matchCount int, num model.Numerology) model.Signature {
	var signals []model.Signal

	// 1. Symbolic headline numbers (2 points each)
	headline := s.HeadlineNumbers(title)
	headlineScore, headlineSignal := s.calculateHeadline(headline)
	signals = append(signals, headlineSignal)

	// 2. Cipher matches (1 point each)
	matchScore, matchSignal := s.calculateMatches(matchCount)
	signals = append(signals, matchSignal)

	// 3. Master day (1 point)
	masterScore, masterSignal := s.calculateMasterDay(num)
	signals = append(signals, masterSignal)

	// 4. Life path bonus (1 point)
	lifeScore, lifeSignal := s.calculateLifePath(num)
	signals = append(signals, lifeSignal)

	// Palindrome dates are reported but do not score
	if num.Palindrome {
		signals = append(signals, model.Signal{
			Type:        model.SignalPalindromeDate,
			Severity:    model.SeverityNotable,
			Description: "Date reads the same reversed",
			Data:        map[string]interface{}{"score": 0},
		})
	}

	return model.Signature{
		Score:           headlineScore + matchScore + masterScore + lifeScore,
		HeadlineNumbers: headline,
		LifePath:        num.LifePath,
		MasterDay:       num.MasterDay,
		Signals:         signals,
	}
}

func (s *Scorer) calculateHeadline(numbers []int) (int, model.Signal) {
	score := 2 * len(numbers)

	severity := model.SeverityInfo
	if len(numbers) >= 2 {
		severity = model.SeverityStriking
	} else if len(numbers) == 1 {
		severity = model.SeverityNotable
	}

	return score, model.Signal{
		Type:        model.SignalHeadlineNumbers,
		Severity:    severity,
		Description: fmt.Sprintf("Symbolic numbers in headline: %d", len(numbers)),
		Data: map[string]interface{}{
			"numbers": numbers,
			"score":   score,
			"formula": "2 * count(headline numbers in symbolic set)",
		},
	}
}

func (s *Scorer) calculateMatches(matchCount int) (int, model.Signal) {
	if matchCount < 0 {
		matchCount = 0
	}

	severity := model.SeverityInfo
	if matchCount >= 10 {
		severity = model.SeverityStriking
	} else if matchCount > 0 {
		severity = model.SeverityNotable
	}

	return matchCount, model.Signal{
		Type:        model.SignalCipherMatches,
		Severity:    severity,
		Description: fmt.Sprintf("Cipher matches against reference: %d", matchCount),
		Data: map[string]interface{}{
			"matches": matchCount,
			"score":   matchCount,
			"formula": "count(match records)",
		},
	}
}

func (s *Scorer) calculateMasterDay(num model.Numerology) (int, model.Signal) {
	score := 0
	severity := model.SeverityInfo
	description := "Not a master day"
	if num.MasterDay {
		score = 1
		severity = model.SeverityNotable
		description = "Master day (11th or 22nd)"
	}

	return score, model.Signal{
		Type:        model.SignalMasterDay,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"master_day": num.MasterDay,
			"score":      score,
			"formula":    "1 if day in {11, 22}",
		},
	}
}

func (s *Scorer) calculateLifePath(num model.Numerology) (int, model.Signal) {
	score := 0
	severity := model.SeverityInfo
	if s.bonus[num.LifePath] {
		score = 1
		severity = model.SeverityNotable
	}

	return score, model.Signal{
		Type:        model.SignalLifePath,
		Severity:    severity,
		Description: fmt.Sprintf("Life path %d", num.LifePath),
		Data: map[string]interface{}{
			"life_path": num.LifePath,
			"score":     score,
			"formula":   "1 if life_path in bonus set",
		},
	}
}
