package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/llm"
	"ai-interview-copilot/internal/models"
)

type scriptedBackend struct {
	name      string
	reply     string
	chunks    []string
	err       error
	streamed  int
	generated int
}

func (s *scriptedBackend) Name() string { return s.name }

func (s *scriptedBackend) Generate(ctx context.Context, messages []llm.Message, maxTokens int) (string, error) {
	s.generated++
	return s.reply, s.err
}

func (s *scriptedBackend) GenerateStream(ctx context.Context, messages []llm.Message, maxTokens int, emit func(string) error) error {
	s.streamed++
	if s.err != nil {
		return s.err
	}
	for _, c := range s.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return nil
}

func testOrchestrator(primary, secondary llm.Client) *Orchestrator {
	return New(primary, secondary, llm.StrategyHybrid, Config{
		DirectThreshold: 0.62,
		GenerateTimeout: time.Second,
		Budgets:         Budgets{Short: 120, Standard: 300, DeepDive: 600},
	}, zerolog.Nop())
}

func TestDirectMatch(t *testing.T) {
	o := testOrchestrator(nil, nil)

	candidates := []models.MatchCandidate{
		{Item: models.KnowledgeItem{ID: "qa-1"}, Similarity: 0.55},
		{Item: models.KnowledgeItem{ID: "qa-2"}, Similarity: 0.70},
	}
	best, ok := o.DirectMatch(candidates)
	if !ok || best.Item.ID != "qa-2" {
		t.Errorf("DirectMatch = %+v, %v; want qa-2", best, ok)
	}

	if _, ok := o.DirectMatch([]models.MatchCandidate{{Similarity: 0.5}}); ok {
		t.Error("candidate below threshold qualified for direct retrieval")
	}
	if _, ok := o.DirectMatch(nil); ok {
		t.Error("empty candidate list qualified for direct retrieval")
	}
}

func TestRetrieve(t *testing.T) {
	o := testOrchestrator(nil, nil)

	got := o.Retrieve("Tell me about yourself", models.MatchCandidate{
		Item: models.KnowledgeItem{ID: "qa-1", Answer: "stored answer"},
	})
	if got.Source != models.SourceRetrieved || got.Text != "stored answer" {
		t.Errorf("Retrieve = %+v", got)
	}
	if len(got.ExamplesUsed) != 0 {
		t.Error("direct retrieval extracted examples")
	}
}

func TestSynthesize_PrimaryStreams(t *testing.T) {
	primary := &scriptedBackend{name: "primary", chunks: []string{"I led ", "Project Phoenix ", "to completion."}}
	secondary := &scriptedBackend{name: "secondary", reply: "unused"}
	o := testOrchestrator(primary, secondary)

	var chunks []string
	got, err := o.Synthesize(context.Background(), Request{
		Question: models.DetectedQuestion{Text: "Tell me about a recent win", Type: models.QuestionBehavioral},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(chunks))
	}
	if got.Text != "I led Project Phoenix to completion." {
		t.Errorf("assembled text = %q", got.Text)
	}
	if got.Source != models.SourceSynthesized {
		t.Errorf("source = %s", got.Source)
	}
	if len(got.ExamplesUsed) != 1 || got.ExamplesUsed[0] != "Project Phoenix" {
		t.Errorf("examples = %v", got.ExamplesUsed)
	}
	if secondary.generated != 0 || secondary.streamed != 0 {
		t.Error("secondary touched while primary succeeded")
	}
}

func TestSynthesize_FailoverToSecondary(t *testing.T) {
	primary := &scriptedBackend{name: "primary", err: errors.New("rate limited")}
	secondary := &scriptedBackend{name: "secondary", reply: "fallback answer"}
	o := testOrchestrator(primary, secondary)

	var chunks []string
	got, err := o.Synthesize(context.Background(), Request{
		Question: models.DetectedQuestion{Text: "Why this company?"},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// The fallback answer arrives as a single chunk, never the error text.
	if len(chunks) != 1 || chunks[0] != "fallback answer" {
		t.Errorf("chunks = %v", chunks)
	}
	if got.Text != "fallback answer" {
		t.Errorf("text = %q", got.Text)
	}
	if secondary.streamed != 0 {
		t.Error("fallback attempt streamed")
	}
}

func TestSynthesize_AllBackendsFail(t *testing.T) {
	primary := &scriptedBackend{name: "primary", err: errors.New("down")}
	secondary := &scriptedBackend{name: "secondary", err: errors.New("also down")}
	o := testOrchestrator(primary, secondary)

	var chunks []string
	_, err := o.Synthesize(context.Background(), Request{
		Question: models.DetectedQuestion{Text: "Why this company?"},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("err = %v, want ErrAllBackendsFailed", err)
	}
	if len(chunks) != 1 || chunks[0] != ErrorChunk {
		t.Errorf("chunks = %v, want the error chunk", chunks)
	}
}

func TestSynthesize_DeliveryFailureDoesNotFailOver(t *testing.T) {
	primary := &scriptedBackend{name: "primary", chunks: []string{"partial"}}
	secondary := &scriptedBackend{name: "secondary", reply: "unused"}
	o := testOrchestrator(primary, secondary)

	wantErr := errors.New("connection closed")
	_, err := o.Synthesize(context.Background(), Request{
		Question: models.DetectedQuestion{Text: "Why this company?"},
	}, func(chunk string) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want delivery error", err)
	}
	if secondary.generated != 0 {
		t.Error("failover attempted after delivery failure")
	}
}

func TestStallingText(t *testing.T) {
	if StallingText(models.QuestionBehavioral) == "" {
		t.Error("empty stalling text for behavioral")
	}
	if StallingText(models.QuestionType("unknown")) != stallingTexts[models.QuestionGeneral] {
		t.Error("unknown type did not fall back to general")
	}
}

func TestBudgetFor(t *testing.T) {
	budgets := Budgets{Short: 120, Standard: 300, DeepDive: 600}
	tests := []struct {
		question string
		want     int
	}{
		{"Do you know Kubernetes?", 120},
		{"Why do you want this role?", 300},
		{"Walk me through your architecture in detail", 600},
		{"Do you know Kubernetes? Just answer yes or no", 60}, // frustration halves
	}
	for _, tc := range tests {
		if got := budgetFor(tc.question, budgets); got != tc.want {
			t.Errorf("budgetFor(%q) = %d, want %d", tc.question, got, tc.want)
		}
	}
}

func TestExtractExamples(t *testing.T) {
	text := "I led Project Phoenix at Initech, then built Billing Gateway. Later I led Project Phoenix again."
	got := ExtractExamples(text)
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 distinct examples", got)
	}
	want := []string{"Project Phoenix", "Initech", "Billing Gateway"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("examples[%d] = %q, want %q", i, got[i], w)
		}
	}
}

func TestBuildMessages_CombineInstruction(t *testing.T) {
	req := Request{
		Question: models.DetectedQuestion{Text: "Tell me about yourself"},
		Candidates: []models.MatchCandidate{
			{Item: models.KnowledgeItem{Question: "q1", Answer: "a1"}},
			{Item: models.KnowledgeItem{Question: "q2", Answer: "a2"}},
		},
	}
	messages := buildMessages(req)
	if messages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role = %s", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "Do not concatenate") {
		t.Error("missing combine instruction for multiple candidates")
	}
	if messages[len(messages)-1].Content != "Tell me about yourself" {
		t.Error("question is not the last message")
	}
}

func TestBuildMessages_UsedExamples(t *testing.T) {
	req := Request{
		Question:     models.DetectedQuestion{Text: "Another behavioral one"},
		UsedExamples: []string{"Project Phoenix"},
	}
	messages := buildMessages(req)
	if !strings.Contains(messages[0].Content, "Project Phoenix") {
		t.Error("used examples missing from system prompt")
	}
	if !strings.Contains(messages[0].Content, "do not repeat") {
		t.Error("no-repeat instruction missing")
	}
}

func TestBuildMessages_HistoryWindow(t *testing.T) {
	req := Request{Question: models.DetectedQuestion{Text: "latest"}}
	for i := 0; i < 10; i++ {
		req.History = append(req.History, models.HistoryEntry{Question: "q", Answer: "a"})
	}
	messages := buildMessages(req)
	// system + windowed history pairs + question
	want := 1 + historyWindow*2 + 1
	if len(messages) != want {
		t.Errorf("got %d messages, want %d", len(messages), want)
	}
}
