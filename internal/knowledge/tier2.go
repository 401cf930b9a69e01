package knowledge

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// SemanticMatcher is the Tier-2 resolver: cosine similarity between the
// query embedding and the company's curated Q&A corpus. Corpus embeddings
// are computed once per company+config version and cached in memory.
type SemanticMatcher struct {
	embedder llm.Embedder
	model    string
	logger   *logging.Logger

	mu    sync.RWMutex
	cache map[string][]embeddedQA // keyed by companyID + ":" + configVersion
}

type embeddedQA struct {
	id        string
	answer    string
	embedding []float32
}

// NewSemanticMatcher creates a Tier-2 matcher.
func NewSemanticMatcher(embedder llm.Embedder, model string, logger *logging.Logger) *SemanticMatcher {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SemanticMatcher{
		embedder: embedder,
		model:    model,
		logger:   logger,
		cache:    make(map[string][]embeddedQA),
	}
}

// Match returns the best semantic hit for the query, or nil when the
// corpus is empty or nothing scores.
func (m *SemanticMatcher) Match(ctx context.Context, cfg *company.Config, query string) (*Result, error) {
	if cfg == nil || len(cfg.QAPairs) == 0 {
		return nil, nil
	}

	corpus, err := m.corpusFor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	vecs, err := m.embedder.Embed(ctx, m.model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: query embedding: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	queryVec := vecs[0]

	var best *Result
	for _, qa := range corpus {
		score := cosineSimilarity(queryVec, qa.embedding)
		if best == nil || score > best.Confidence {
			best = &Result{
				Tier:        2,
				Confidence:  score,
				FactualText: qa.answer,
				Cost:        costTier2,
				SourceID:    qa.id,
			}
		}
	}
	return best, nil
}

func (m *SemanticMatcher) corpusFor(ctx context.Context, cfg *company.Config) ([]embeddedQA, error) {
	key := cfg.CompanyID + ":" + cfg.ConfigVersion

	m.mu.RLock()
	corpus, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return corpus, nil
	}

	questions := make([]string, 0, len(cfg.QAPairs))
	for _, qa := range cfg.QAPairs {
		questions = append(questions, qa.Question)
	}

	vecs, err := m.embedder.Embed(ctx, m.model, questions)
	if err != nil {
		return nil, fmt.Errorf("knowledge: corpus embedding: %w", err)
	}
	if len(vecs) != len(cfg.QAPairs) {
		return nil, fmt.Errorf("knowledge: corpus embedding size mismatch: got %d want %d", len(vecs), len(cfg.QAPairs))
	}

	corpus = make([]embeddedQA, len(cfg.QAPairs))
	for i, qa := range cfg.QAPairs {
		corpus[i] = embeddedQA{id: qa.ID, answer: qa.Answer, embedding: vecs[i]}
	}

	m.mu.Lock()
	m.cache[key] = corpus
	m.mu.Unlock()

	m.logger.Debug("semantic corpus embedded",
		"company_id", cfg.CompanyID,
		"config_version", cfg.ConfigVersion,
		"entries", len(corpus),
	)
	return corpus, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	var normA float64
	var normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
