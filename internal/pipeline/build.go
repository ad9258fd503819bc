package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/archetype"
	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/engine"
	"github.com/ppiankov/decode/internal/extract"
	"github.com/ppiankov/decode/internal/fetch"
	"github.com/ppiankov/decode/internal/ingest"
	"github.com/ppiankov/decode/internal/llm"
	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/refdb"
	"github.com/ppiankov/decode/internal/score"
)

// Calculators returns the configured calculator set, all five when none are named
func Calculators(cfg model.EngineConfig) (*cipher.Set, error) {
	if len(cfg.Calculators) == 0 {
		return cipher.Default(), nil
	}
	return cipher.Default().Subset(cfg.Calculators...)
}

// BuildEngine loads the reference database and archetypes and builds the engine
func BuildEngine(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*engine.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	calcs, err := Calculators(cfg.Engine)
	if err != nil {
		return nil, err
	}

	phrases, err := refdb.Load(ctx, cfg.Reference.PhrasesPath)
	if err != nil {
		return nil, fmt.Errorf("load reference database: %w", err)
	}
	idx, err := match.BuildIndex(calcs, phrases)
	if err != nil {
		return nil, fmt.Errorf("build reference index: %w", err)
	}

	scanner, err := archetype.LoadScanner(cfg.Reference.ArchetypesPath)
	if err != nil {
		return nil, fmt.Errorf("load archetypes: %w", err)
	}

	logger.Info("Loaded reference data",
		zap.String("phrases_path", cfg.Reference.PhrasesPath),
		zap.Int("phrases", idx.Size()),
		zap.Int("archetypes", scanner.Len()),
		zap.Strings("calculators", calcs.Names()),
	)

	return engine.New(engine.Options{
		Calculators:     calcs,
		Index:           idx,
		Archetypes:      scanner,
		Scorer:          score.NewScorer(cfg.Engine.SymbolicNumbers, cfg.Engine.LifePathBonus),
		ArchetypeWindow: cfg.Engine.ArchetypeWindow,
		Logger:          logger,
	})
}

// NewExtractor returns the configured LLM provider, or the heuristic extractor
// when none is configured or the provider is unreachable.
func NewExtractor(ctx context.Context, cfg *model.Config, logger *zap.Logger) (PhraseExtractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return extract.NewHeuristic(), nil
	}
	if !provider.IsAvailable(ctx) {
		logger.Warn("LLM provider unavailable, using heuristic extraction", zap.String("provider", provider.Name()))
		_ = provider.Close()
		return extract.NewHeuristic(), nil
	}
	return provider, nil
}

// NewFromConfig wires fetcher, ingestor, article parser, extractor and engine
func NewFromConfig(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eng, err := BuildEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	var fallback PhraseExtractor
	if _, heuristic := extractor.(*extract.Heuristic); !heuristic {
		fallback = extract.NewHeuristic()
	}

	fetcher := fetch.FromConfig(cfg, logger)

	return New(Options{
		Feeds:       ingest.New(fetcher, cfg.Feeds, cfg.Concurrency.Workers, logger),
		Articles:    extract.NewArticleParser(fetcher, logger),
		Extractor:   extractor,
		Fallback:    fallback,
		Engine:      eng,
		Workers:     cfg.Concurrency.Workers,
		MaxPhrases:  cfg.Engine.MaxPhrases,
		TextPreview: cfg.Output.TextPreview,
		Logger:      logger,
	})
}
