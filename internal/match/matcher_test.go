package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/knowledge"
	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/vector"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	queries int
	results []vector.Result
	err     error
}

func (f *fakeStore) Ensure(ctx context.Context) error { return nil }

func (f *fakeStore) Search(ctx context.Context, vec []float32, userID string, threshold float64, limit int) ([]vector.Result, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()
	return f.results, f.err
}

func (f *fakeStore) Upsert(ctx context.Context, points []vector.Point) error { return nil }
func (f *fakeStore) Delete(ctx context.Context, ids []string) error          { return nil }

func testConfig() Config {
	return Config{
		FuzzyThreshold:     0.85,
		SemanticThreshold:  0.5,
		ExactFlagThreshold: 0.92,
		TopK:               5,
		SearchTimeout:      time.Second,
	}
}

func testIndex() *knowledge.Index {
	ix := knowledge.NewIndex()
	ix.Rebuild([]models.KnowledgeItem{
		{
			ID:       "qa-1",
			Question: "Tell me about yourself",
			Answer:   "I am a backend engineer with six years in Go.",
			Type:     models.QuestionBehavioral,
		},
		{
			ID:       "qa-2",
			Question: "Why do you want to work here",
			Answer:   "Your platform team solves the problems I care about.",
			Type:     models.QuestionGeneral,
		},
	})
	return ix
}

func TestMatch_ExactWins(t *testing.T) {
	store := &fakeStore{}
	m := New(testIndex(), &fakeEmbedder{}, store, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "Tell me about yourself?", "user-1")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Kind != models.MatchExact || !got[0].ExactMatch || got[0].Similarity != 1.0 {
		t.Errorf("candidate = %+v", got[0])
	}
	if got[0].Item.ID != "qa-1" {
		t.Errorf("matched item = %s, want qa-1", got[0].Item.ID)
	}
	if store.queries != 0 {
		t.Errorf("semantic tier ran %d searches after exact hit", store.queries)
	}
}

func TestMatch_FuzzyTier(t *testing.T) {
	store := &fakeStore{}
	m := New(testIndex(), &fakeEmbedder{}, store, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "could you tell me about yourself", "user-1")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Kind != models.MatchFuzzy {
		t.Errorf("kind = %s, want fuzzy", got[0].Kind)
	}
	if got[0].Similarity < 0.85 {
		t.Errorf("similarity = %v, want >= 0.85", got[0].Similarity)
	}
	if store.queries != 0 {
		t.Errorf("semantic tier ran %d searches after fuzzy hit", store.queries)
	}
}

func TestMatch_SemanticFallback(t *testing.T) {
	store := &fakeStore{results: []vector.Result{
		{ID: "qa-7", Score: 0.81, Item: models.KnowledgeItem{ID: "qa-7", Answer: "stored answer"}},
	}}
	m := New(testIndex(), &fakeEmbedder{}, store, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "walk me through your proudest accomplishment", "user-1")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Kind != models.MatchSemantic || got[0].ExactMatch {
		t.Errorf("candidate = %+v", got[0])
	}
	if store.queries != 1 {
		t.Errorf("store queried %d times, want 1", store.queries)
	}
}

func TestMatch_SemanticExactFlag(t *testing.T) {
	store := &fakeStore{results: []vector.Result{
		{ID: "qa-7", Score: 0.95, Item: models.KnowledgeItem{ID: "qa-7"}},
	}}
	m := New(testIndex(), &fakeEmbedder{}, store, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "walk me through your proudest accomplishment", "user-1")
	if len(got) != 1 || !got[0].ExactMatch {
		t.Fatalf("high-score semantic hit not flagged exact: %+v", got)
	}
}

func TestMatch_DecompositionFansOut(t *testing.T) {
	store := &fakeStore{}
	emb := &fakeEmbedder{}
	dec := NewDecomposer(nil, time.Second) // heuristic only
	m := New(testIndex(), emb, store, dec, testConfig(), zerolog.Nop())

	m.Match(context.Background(), "describe your current project and explain your testing strategy", "user-1")
	if store.queries != 2 {
		t.Errorf("store queried %d times, want 2 (one per sub-question)", store.queries)
	}
}

func TestMatch_FailedSubSearchContributesNothing(t *testing.T) {
	store := &fakeStore{err: errors.New("backend down")}
	m := New(testIndex(), &fakeEmbedder{}, store, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "walk me through your proudest accomplishment", "user-1")
	if len(got) != 0 {
		t.Errorf("got %d candidates from a failed search, want 0", len(got))
	}
}

func TestMatch_NoSemanticBackends(t *testing.T) {
	m := New(testIndex(), nil, nil, nil, testConfig(), zerolog.Nop())

	got := m.Match(context.Background(), "walk me through your proudest accomplishment", "user-1")
	if got != nil {
		t.Errorf("got %d candidates without backends, want none", len(got))
	}
}

func TestFuse_DedupesByBestScore(t *testing.T) {
	fused := fuse([][]vector.Result{
		{
			{ID: "a", Score: 0.70},
			{ID: "b", Score: 0.60},
		},
		{
			{ID: "a", Score: 0.90},
			{ID: "c", Score: 0.65},
		},
	})

	if len(fused) != 3 {
		t.Fatalf("got %d fused results, want 3", len(fused))
	}
	if fused[0].ID != "a" || fused[0].Score != 0.90 {
		t.Errorf("best hit = %+v, want a at 0.90", fused[0])
	}
	if fused[1].ID != "c" || fused[2].ID != "b" {
		t.Errorf("order = %s, %s, %s", fused[0].ID, fused[1].ID, fused[2].ID)
	}
}

func TestSplitHeuristic(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"tell me about yourself", 1},
		{"describe your current project and explain your testing strategy", 2},
		{"what is a mutex and why", 1}, // "why" alone is too short to stand alone
	}
	for _, tc := range tests {
		got := SplitHeuristic(tc.in)
		if len(got) != tc.want {
			t.Errorf("SplitHeuristic(%q) = %d segments %v, want %d", tc.in, len(got), got, tc.want)
		}
	}
}
