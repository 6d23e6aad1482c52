// Package optimizer sequences C1-C8 into the single public operation,
// reconstruct_prompt: analyze intent, retrieve candidates, score, select
// under budget, compress, assemble, estimate, route, compute savings, and
// emit a metrics record. Errors bubble up as typed failures; no partial
// OptimizedPrompt is ever returned.
package optimizer

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/ctxforge/internal/assembler"
	"github.com/fyrsmithlabs/ctxforge/internal/compression"
	"github.com/fyrsmithlabs/ctxforge/internal/index"
	"github.com/fyrsmithlabs/ctxforge/internal/intent"
	"github.com/fyrsmithlabs/ctxforge/internal/logging"
	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/fyrsmithlabs/ctxforge/internal/optimizererr"
	"github.com/fyrsmithlabs/ctxforge/internal/router"
	"github.com/fyrsmithlabs/ctxforge/internal/scoring"
	"github.com/fyrsmithlabs/ctxforge/internal/selector"
	"github.com/fyrsmithlabs/ctxforge/internal/tokenizer"
	"go.uber.org/zap"
)

// EmbeddingProvider turns texts into same-dimension vectors. Errors are
// surfaced as EmbeddingError.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Clock supplies monotonic now() for recency scoring and deterministic
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ScoringContext carries the request-scoped signals the scorer and
// intent analyzer need.
type ScoringContext struct {
	CurrentFile   string
	CurrentDir    string
	PreferredLang string
	History       []string
}

// Source supplies candidate chunks to reconstruct_prompt, either by
// searching a populated index with a query embedding or by a caller
// supplied snapshot list used directly.
type Source struct {
	Index          index.Backend
	QueryEmbedding []float32
	Candidates     []index.Chunk
}

// CompressedChunk is a selected chunk after compression.
type CompressedChunk struct {
	Chunk            index.Chunk
	Content          string
	OriginalTokens   int
	CompressedTokens int
	CompressionRatio float64
}

// Savings reports token and cost reduction (I5).
type Savings struct {
	TokensSaved int
	Percentage  float64
	CostSaved   float64
}

// Routing is the router's decision, carried through to the result.
type Routing struct {
	Provider      string
	Reason        string
	EstimatedCost float64
}

// OptimizedPrompt is the result of reconstruct_prompt.
type OptimizedPrompt struct {
	Prompt     string
	TokensUsed int
	Chunks     []CompressedChunk
	Model      router.Tier
	Savings    Savings
	Routing    Routing
}

// Config carries the orchestrator's tunable policy, normally sourced from
// internal/config.
type Config struct {
	SelectorOverageAllowance float64
	RouterThresholds         router.Thresholds
	CompressionOptions       compression.Options
}

// DefaultConfig returns the spec's default policy values.
func DefaultConfig() Config {
	return Config{
		SelectorOverageAllowance: 0.10,
		RouterThresholds:         router.DefaultThresholds(),
	}
}

// Orchestrator sequences the pipeline and emits metrics records.
type Orchestrator struct {
	clock   Clock
	metrics *metrics.Recorder
	config  Config
	log     *logging.Logger
}

// New constructs an Orchestrator. recorder may be nil, in which case
// records are discarded. logger may be nil, in which case logging calls
// are skipped.
func New(recorder *metrics.Recorder, cfg Config, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{clock: systemClock{}, metrics: recorder, config: cfg, log: logger}
}

// WithClock overrides the orchestrator's clock, used by tests.
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.clock = c
	return o
}

// ReconstructPrompt is the core's single public operation.
func (o *Orchestrator) ReconstructPrompt(ctx context.Context, query string, src Source, budget int, sctx ScoringContext) (OptimizedPrompt, error) {
	if query == "" {
		return OptimizedPrompt{}, optimizererr.New(optimizererr.KindValidation, "query must not be empty")
	}
	if budget <= 0 {
		return OptimizedPrompt{}, optimizererr.New(optimizererr.KindValidation, "budget must be positive")
	}

	qi := intent.Analyze(query, len(sctx.History))
	o.debug(ctx, "intent analyzed", zap.String("intent_type", string(qi.Type)), zap.Float64("complexity", qi.Complexity))

	candidates, err := o.retrieve(ctx, src, qi)
	if err != nil {
		return OptimizedPrompt{}, err
	}
	o.debug(ctx, "candidates retrieved", zap.Int("count", len(candidates)))

	if err := checkCancelled(ctx); err != nil {
		return OptimizedPrompt{}, err
	}

	scored, err := o.scoreAll(ctx, candidates, qi, sctx)
	if err != nil {
		return OptimizedPrompt{}, err
	}

	selOpts := selector.Options{
		OverageAllowance: o.config.SelectorOverageAllowance,
		MinRelevance:     qi.Options.MinRelevance,
		MaxChunks:        qi.Options.MaxChunks,
		PreferDiversity:  qi.Options.PreferDiversity,
	}
	selected := selector.Select(scored, budget, selOpts)
	o.debug(ctx, "chunks selected", zap.Int("scored", len(scored)), zap.Int("selected", len(selected)), zap.Int("budget", budget))
	if err := checkCancelled(ctx); err != nil {
		return OptimizedPrompt{}, err
	}

	compressed, totalOriginalTokens, err := o.compressAll(ctx, selected, budget)
	if err != nil {
		return OptimizedPrompt{}, err
	}

	asmChunks := make([]assembler.Chunk, len(compressed))
	for i, c := range compressed {
		asmChunks[i] = assembler.Chunk{
			FilePath:       c.Chunk.FilePath,
			StartLine:      c.Chunk.StartLine,
			EndLine:        c.Chunk.EndLine,
			Language:       c.Chunk.Language,
			Content:        c.Content,
			RelevanceScore: relevanceOf(selected, c.Chunk.ID),
		}
	}
	assembled := assembler.Assemble(query, asmChunks)

	decision := router.Route(assembled.TokensUsed, qi.Complexity, o.config.RouterThresholds, nil)
	savings := computeSavings(totalOriginalTokens, assembled.TokensUsed, qi, o.config.RouterThresholds)

	result := OptimizedPrompt{
		Prompt:     assembled.Prompt,
		TokensUsed: assembled.TokensUsed,
		Chunks:     compressed,
		Model:      decision.Model,
		Savings:    savings,
		Routing:    Routing{Provider: decision.Provider, Reason: decision.Reason, EstimatedCost: decision.EstimatedCost},
	}

	if o.metrics != nil {
		o.metrics.Record(metrics.Record{
			OriginalTokens:  totalOriginalTokens,
			OptimizedTokens: assembled.TokensUsed,
			Saved:           savings.TokensSaved,
			Ratio:           ratio(totalOriginalTokens, assembled.TokensUsed),
			IntentType:      string(qi.Type),
			Timestamp:       o.clock.Now(),
		})
	}

	if o.log != nil {
		o.log.Info(ctx, "reconstruct_prompt completed",
			zap.Int("tokens_used", result.TokensUsed),
			zap.Int("tokens_saved", savings.TokensSaved),
			zap.Float64("savings_percentage", savings.Percentage),
			zap.String("model", string(result.Model)),
			zap.String("provider", result.Routing.Provider),
		)
	}

	return result, nil
}

func (o *Orchestrator) debug(ctx context.Context, msg string, fields ...zap.Field) {
	if o.log != nil {
		o.log.Debug(ctx, msg, fields...)
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, src Source, qi intent.QueryIntent) ([]scoring.Candidate, error) {
	if src.Index != nil {
		res, err := src.Index.SearchCtx(ctx, src.QueryEmbedding, index.SearchOptions{
			MinRelevance: qi.Options.MinRelevance,
			Limit:        qi.Options.MaxChunks,
		})
		if err != nil {
			return nil, err
		}
		out := make([]scoring.Candidate, len(res.Results))
		for i, r := range res.Results {
			out[i] = scoring.Candidate{Chunk: r.Chunk, Semantic: r.Semantic, AccessCount: r.AccessCount}
		}
		return out, nil
	}

	out := make([]scoring.Candidate, len(src.Candidates))
	for i, c := range src.Candidates {
		out[i] = scoring.Candidate{Chunk: c, Semantic: 1.0}
	}
	return out, nil
}

func (o *Orchestrator) scoreAll(ctx context.Context, candidates []scoring.Candidate, qi intent.QueryIntent, sctx ScoringContext) ([]selector.Candidate, error) {
	sc := scoring.Context{
		CurrentFile:   sctx.CurrentFile,
		CurrentDir:    sctx.CurrentDir,
		Now:           o.clock.Now(),
		PreferredLang: sctx.PreferredLang,
	}

	out := make([]selector.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		scored := scoring.Score(c, qi, sc)
		out = append(out, selector.Candidate{
			Scored:          scored,
			EstimatedTokens: tokenizer.Estimate(c.Chunk.Content),
		})
	}
	return out, nil
}

func (o *Orchestrator) compressAll(ctx context.Context, selected []selector.Candidate, budget int) ([]CompressedChunk, int, error) {
	perChunkBudget := compression.PerChunkBudget(budget, len(selected))
	out := make([]CompressedChunk, 0, len(selected))
	totalOriginal := 0

	for _, s := range selected {
		if err := checkCancelled(ctx); err != nil {
			return nil, 0, err
		}

		c := s.Scored.Chunk
		res := compression.Compress(compression.Input{
			FilePath:  c.FilePath,
			Kind:      c.Kind,
			Name:      c.Name,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Language:  c.Language,
			Content:   c.Content,
		}, perChunkBudget, o.config.CompressionOptions)

		totalOriginal += res.OriginalTokens
		out = append(out, CompressedChunk{
			Chunk:            c,
			Content:          res.Content,
			OriginalTokens:   res.OriginalTokens,
			CompressedTokens: res.CompressedTokens,
			CompressionRatio: res.CompressionRatio,
		})
	}
	return out, totalOriginal, nil
}

func computeSavings(totalOriginalTokens, tokensUsed int, qi intent.QueryIntent, t router.Thresholds) Savings {
	saved := totalOriginalTokens - tokensUsed
	if saved < 0 {
		saved = 0
	}
	pct := 0.0
	if totalOriginalTokens > 0 {
		pct = 100 * float64(saved) / float64(totalOriginalTokens)
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}

	baseline := router.Route(totalOriginalTokens, qi.Complexity, t, nil)
	actual := router.Route(tokensUsed, qi.Complexity, t, nil)
	costSaved := baseline.EstimatedCost - actual.EstimatedCost
	if costSaved < 0 {
		costSaved = 0
	}

	return Savings{TokensSaved: saved, Percentage: pct, CostSaved: costSaved}
}

func ratio(original, optimized int) float64 {
	if optimized <= 0 {
		return 1.0
	}
	return float64(original) / float64(optimized)
}

func relevanceOf(selected []selector.Candidate, id string) float64 {
	for _, s := range selected {
		if s.Scored.Chunk.ID == id {
			return s.Scored.RelevanceScore
		}
	}
	return 0
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return optimizererr.Cancelled()
	default:
		return nil
	}
}
