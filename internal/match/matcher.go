// Package match finds the best stored answer for a detected question. It
// cascades through three tiers: exact lookup against the in-memory index,
// fuzzy string matching, and semantic vector search with question
// decomposition.
package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/embed"
	"ai-interview-copilot/internal/knowledge"
	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/observability/metrics"
	"ai-interview-copilot/internal/vector"
)

// Config holds the matching thresholds. Scores are cosine-style in [0,1].
type Config struct {
	// FuzzyThreshold admits a fuzzy string match.
	FuzzyThreshold float64
	// SemanticThreshold is the floor for vector search hits.
	SemanticThreshold float64
	// ExactFlagThreshold marks a candidate close enough to serve verbatim.
	ExactFlagThreshold float64
	// TopK bounds the candidates returned from semantic search.
	TopK int
	// SearchTimeout bounds the whole semantic tier, embedding included.
	SearchTimeout time.Duration
}

// Matcher runs the three-tier match cascade. Store and embedder may be nil
// when semantic search is not configured; the first two tiers still work.
type Matcher struct {
	index      *knowledge.Index
	embedder   embed.Embedder
	store      vector.Store
	decomposer *Decomposer
	cfg        Config
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// New creates a matcher over the given index and semantic backends.
func New(index *knowledge.Index, embedder embed.Embedder, store vector.Store, decomposer *Decomposer, cfg Config, log zerolog.Logger) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 2 * time.Second
	}
	return &Matcher{
		index:      index,
		embedder:   embedder,
		store:      store,
		decomposer: decomposer,
		cfg:        cfg,
		log:        log,
		metrics:    metrics.DefaultMetrics,
	}
}

// Match returns candidates for question, best first. userID scopes the
// semantic tier. An empty slice means nothing matched above threshold;
// that is not an error.
func (m *Matcher) Match(ctx context.Context, question, userID string) []models.MatchCandidate {
	if item, ok := m.index.LookupExact(question); ok {
		m.metrics.Matches.WithLabelValues(string(models.MatchExact)).Inc()
		return []models.MatchCandidate{{
			Item:       item,
			Similarity: 1.0,
			Kind:       models.MatchExact,
			ExactMatch: true,
		}}
	}

	if item, sim, ok := m.index.LookupFuzzy(question); ok && sim >= m.cfg.FuzzyThreshold {
		m.metrics.Matches.WithLabelValues(string(models.MatchFuzzy)).Inc()
		return []models.MatchCandidate{{
			Item:       item,
			Similarity: sim,
			Kind:       models.MatchFuzzy,
			ExactMatch: sim >= m.cfg.ExactFlagThreshold,
		}}
	}

	return m.semantic(ctx, question, userID)
}

// semantic decomposes the question, searches each sub-question in
// parallel, and fuses the hits.
func (m *Matcher) semantic(ctx context.Context, question, userID string) []models.MatchCandidate {
	if m.store == nil || m.embedder == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.SearchTimeout)
	defer cancel()

	subs := []string{question}
	if m.decomposer != nil {
		subs = m.decomposer.Decompose(ctx, question)
	}

	m.metrics.SemanticSearches.Inc()

	hits := make([][]vector.Result, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			results, err := m.searchOne(ctx, sub, userID)
			if err != nil {
				// A failed sub-search contributes nothing; the others
				// still count.
				if ctx.Err() != nil {
					m.metrics.SearchTimeouts.Inc()
				}
				m.log.Warn().Err(err).Str("subQuestion", sub).Msg("Semantic sub-search failed")
				return
			}
			hits[i] = results
		}(i, sub)
	}
	wg.Wait()

	fused := fuse(hits)
	if len(fused) > m.cfg.TopK {
		fused = fused[:m.cfg.TopK]
	}

	candidates := make([]models.MatchCandidate, 0, len(fused))
	for _, hit := range fused {
		candidates = append(candidates, models.MatchCandidate{
			Item:       hit.Item,
			Similarity: hit.Score,
			Kind:       models.MatchSemantic,
			ExactMatch: hit.Score >= m.cfg.ExactFlagThreshold,
		})
	}
	if len(candidates) > 0 {
		m.metrics.Matches.WithLabelValues(string(models.MatchSemantic)).Inc()
	}
	return candidates
}

func (m *Matcher) searchOne(ctx context.Context, sub, userID string) ([]vector.Result, error) {
	vec, err := m.embedder.Embed(ctx, sub)
	if err != nil {
		return nil, err
	}
	return m.store.Search(ctx, vec, userID, m.cfg.SemanticThreshold, m.cfg.TopK)
}

// fuse merges per-sub-question hit lists, deduplicating by point ID and
// keeping the best score for each, sorted best first.
func fuse(hits [][]vector.Result) []vector.Result {
	best := make(map[string]vector.Result)
	for _, list := range hits {
		for _, hit := range list {
			if prev, ok := best[hit.ID]; !ok || hit.Score > prev.Score {
				best[hit.ID] = hit
			}
		}
	}

	fused := make([]vector.Result, 0, len(best))
	for _, hit := range best {
		fused = append(fused, hit)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}
