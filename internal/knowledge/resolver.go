package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// ErrLookupFailed indicates every tier errored out; the engine escalates
// to a human rather than guessing.
var ErrLookupFailed = errors.New("knowledge: all tiers failed")

// Attempt records one tier invocation, hit or miss, for the audit trail
// and cost accounting.
type Attempt struct {
	Tier       int
	Confidence float64
	SourceID   string
	Cost       float64
	Hit        bool
	Err        string
}

// Resolver walks the tiers in cost order and stops at the first
// authoritative result. A result is authoritative only when its confidence
// clears the company's per-tier threshold; below that, the engine
// downgrades the action instead of presenting a guess as fact.
type Resolver struct {
	semantic    *SemanticMatcher
	synthesizer *Synthesizer
	reshaper    *Reshaper
	tierTimeout time.Duration
	logger      *logging.Logger
}

// NewResolver wires the tiered waterfall. semantic and synthesizer may be
// nil, in which case their tiers are skipped.
func NewResolver(semantic *SemanticMatcher, synthesizer *Synthesizer, reshaper *Reshaper, tierTimeout time.Duration, logger *logging.Logger) *Resolver {
	if tierTimeout <= 0 {
		tierTimeout = 8 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		semantic:    semantic,
		synthesizer: synthesizer,
		reshaper:    reshaper,
		tierTimeout: tierTimeout,
		logger:      logger,
	}
}

// Resolve runs the waterfall for a query. It returns the authoritative
// result (reshaped when possible) plus every attempt made. A nil result
// with a nil error means no tier cleared its threshold.
func (r *Resolver) Resolve(ctx context.Context, cfg *company.Config, query string) (*Result, []Attempt, error) {
	var attempts []Attempt
	failures := 0
	tiersRun := 0

	// Tier 1: deterministic scenario match. Cannot error.
	tiersRun++
	if res := matchScenario(cfg, query); res != nil {
		attempts = append(attempts, attemptFrom(res, res.Confidence >= cfg.Thresholds.Tier1, ""))
		if res.Confidence >= cfg.Thresholds.Tier1 {
			return r.finish(ctx, res), attempts, nil
		}
	} else {
		attempts = append(attempts, Attempt{Tier: 1, Cost: costTier1})
	}

	// Tier 2: semantic match over the curated corpus.
	if r.semantic != nil {
		tiersRun++
		tierCtx, cancel := context.WithTimeout(ctx, r.tierTimeout)
		res, err := r.semantic.Match(tierCtx, cfg, query)
		cancel()
		switch {
		case err != nil:
			failures++
			r.logger.Warn("tier2 semantic match failed", "error", err)
			attempts = append(attempts, Attempt{Tier: 2, Cost: costTier2, Err: err.Error()})
		case res != nil:
			hit := res.Confidence >= cfg.Thresholds.Tier2
			attempts = append(attempts, attemptFrom(res, hit, ""))
			if hit {
				return r.finish(ctx, res), attempts, nil
			}
		default:
			attempts = append(attempts, Attempt{Tier: 2, Cost: costTier2})
		}
	}

	// Tier 3: LLM synthesis, last resort.
	if r.synthesizer != nil {
		tiersRun++
		tierCtx, cancel := context.WithTimeout(ctx, r.tierTimeout)
		res, err := r.synthesizer.Synthesize(tierCtx, cfg, query)
		cancel()
		switch {
		case err != nil:
			failures++
			r.logger.Warn("tier3 synthesis failed", "error", err)
			attempts = append(attempts, Attempt{Tier: 3, Cost: costTier3, Err: err.Error()})
		case res != nil:
			hit := res.Confidence >= cfg.Thresholds.Tier3
			attempts = append(attempts, attemptFrom(res, hit, ""))
			if hit {
				return r.finish(ctx, res), attempts, nil
			}
		default:
			attempts = append(attempts, Attempt{Tier: 3, Cost: costTier3})
		}
	}

	// Tier 1 alone can't "fail", so only treat this as a lookup failure
	// when every tier that can error did.
	if failures > 0 && failures == tiersRun-1 {
		return nil, attempts, ErrLookupFailed
	}
	return nil, attempts, nil
}

// finish reshapes an authoritative fact into natural phrasing. On any
// reshape failure the raw fact ships verbatim.
func (r *Resolver) finish(ctx context.Context, res *Result) *Result {
	if r.reshaper == nil {
		return res
	}
	reshaped, ok := r.reshaper.Reshape(ctx, res.FactualText)
	if ok {
		res.FactualText = reshaped
		res.Reshaped = true
	}
	return res
}

func attemptFrom(res *Result, hit bool, errMsg string) Attempt {
	return Attempt{
		Tier:       res.Tier,
		Confidence: res.Confidence,
		SourceID:   res.SourceID,
		Cost:       res.Cost,
		Hit:        hit,
		Err:        errMsg,
	}
}
