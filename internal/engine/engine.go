// Package engine runs the per-item analysis: cipher values, reference
// matches, date numerology, archetype hits and the ritual signature.
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/archetype"
	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/numerology"
	"github.com/ppiankov/decode/internal/score"
)

// DefaultArchetypeWindow is how much of the body is scanned for archetypes
const DefaultArchetypeWindow = 5000

var (
	// ErrNoReference is returned when the engine is built without a reference index
	ErrNoReference = errors.New("engine: reference index is required")
	// ErrNoArchetypes is returned when the engine is built without an archetype scanner
	ErrNoArchetypes = errors.New("engine: archetype scanner is required")
)

// Item is one unit of analysis
type Item struct {
	Title   string           `json:"title"`
	Body    string           `json:"body"`
	Phrases []string         `json:"phrases"`
	Date    *numerology.Date `json:"-"` // nil means today per the engine clock
}

// Options wires the engine's collaborators
type Options struct {
	Calculators     *cipher.Set // nil uses the index's calculators
	Index           *match.Index
	Archetypes      *archetype.Scanner
	Scorer          *score.Scorer // nil uses the default number sets
	ArchetypeWindow int
	Clock           func() time.Time
	Logger          *zap.Logger
}

// Engine is immutable after New and safe for concurrent Analyze calls
type Engine struct {
	calculators *cipher.Set
	index       *match.Index
	archetypes  *archetype.Scanner
	scorer      *score.Scorer
	window      int
	clock       func() time.Time
	logger      *zap.Logger
}

// New validates the options and builds an engine
func New(opts Options) (*Engine, error) {
	if opts.Index == nil || opts.Index.Size() == 0 {
		return nil, ErrNoReference
	}
	if opts.Archetypes == nil || opts.Archetypes.Len() == 0 {
		return nil, ErrNoArchetypes
	}

	calcs := opts.Calculators
	if calcs == nil {
		var err error
		calcs, err = cipher.Default().Subset(opts.Index.Calculators()...)
		if err != nil {
			return nil, fmt.Errorf("engine calculators: %w", err)
		}
	}

	e := &Engine{
		calculators: calcs,
		index:       opts.Index,
		archetypes:  opts.Archetypes,
		scorer:      opts.Scorer,
		window:      opts.ArchetypeWindow,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	if e.scorer == nil {
		e.scorer = score.DefaultScorer()
	}
	if e.window <= 0 {
		e.window = DefaultArchetypeWindow
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("engine")

	return e, nil
}

// Calculators returns the calculator set used for query phrases
func (e *Engine) Calculators() *cipher.Set {
	return e.calculators
}

// Index returns the reference index
func (e *Engine) Index() *match.Index {
	return e.index
}

// Analyze runs the five steps over one item. Only an invalid date is an error.
func (e *Engine) Analyze(item Item) (model.Analysis, error) {
	date := numerology.FromTime(e.clock())
	if item.Date != nil {
		date = *item.Date
	}

	num, err := numerology.Compute(date)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("analyze %q: %w", item.Title, err)
	}

	values := e.calculators.Values(item.Phrases)
	matches := match.Match(values, e.index)
	if matches == nil {
		matches = []model.MatchRecord{}
	}

	hits := e.archetypes.Scan(item.Title + "\n" + truncate(item.Body, e.window))
	signature := e.scorer.Calculate(item.Title, len(matches), num)

	e.logger.Debug("Analyzed item",
		zap.String("title", item.Title),
		zap.String("date", date.String()),
		zap.Int("phrases", len(values)),
		zap.Int("matches", len(matches)),
		zap.Int("archetypes", len(hits)),
		zap.Int("score", signature.Score),
	)

	return model.Analysis{
		Title:      item.Title,
		Date:       date.String(),
		Phrases:    values.Phrases(),
		Values:     values,
		Matches:    matches,
		Numerology: num,
		Archetypes: hits,
		Signature:  signature,
		SunSign:    numerology.SunSign(date),
	}, nil
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
