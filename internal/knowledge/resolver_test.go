package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
)

type fakeClient struct {
	text string
	err  error
}

func (f *fakeClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text}, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func scenarioConfig() *company.Config {
	cfg := company.Defaulted("co-1")
	cfg.Scenarios = []company.Scenario{
		{ID: "hours", Keywords: []string{"hours", "open"}, Answer: "We're open 8am to 6pm, Monday through Friday.", Confidence: 0.9},
	}
	return cfg
}

func TestResolveTier1Hit(t *testing.T) {
	r := NewResolver(nil, nil, nil, time.Second, nil)
	cfg := scenarioConfig()

	res, attempts, err := r.Resolve(context.Background(), cfg, "what hours are you open")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Tier != 1 {
		t.Fatalf("result = %+v, want tier 1", res)
	}
	if res.FactualText != cfg.Scenarios[0].Answer {
		t.Errorf("text = %q", res.FactualText)
	}
	if res.Cost != 0 {
		t.Errorf("tier1 cost = %v, want free", res.Cost)
	}
	if len(attempts) != 1 || !attempts[0].Hit {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestResolveBelowThresholdReturnsNothing(t *testing.T) {
	// Tier 3 answers with confidence 0.3, below the 0.5 floor. The
	// resolver must return no result and no error: the caller downgrades
	// instead of presenting a guess.
	synth := NewSynthesizer(&fakeClient{text: `{"answer": "probably around noon", "confidence": 0.3, "source": "guess"}`}, "model-a")
	r := NewResolver(nil, synth, nil, time.Second, nil)

	cfg := company.Defaulted("co-1")
	cfg.Variables["service_area"] = "Denver metro"

	res, attempts, err := r.Resolve(context.Background(), cfg, "when will the technician arrive")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res != nil {
		t.Fatalf("low-confidence result leaked: %+v", res)
	}
	last := attempts[len(attempts)-1]
	if last.Tier != 3 || last.Hit {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestResolveAllErrorableTiersFailed(t *testing.T) {
	semantic := NewSemanticMatcher(&fakeEmbedder{err: errors.New("embed down")}, "embed-model", nil)
	synth := NewSynthesizer(&fakeClient{err: errors.New("model down")}, "model-a")
	r := NewResolver(semantic, synth, nil, time.Second, nil)

	cfg := company.Defaulted("co-1")
	cfg.QAPairs = []company.QAPair{{ID: "q1", Question: "Do you offer financing?", Answer: "Yes."}}
	cfg.Variables["service_area"] = "Denver metro"

	_, _, err := r.Resolve(context.Background(), cfg, "do you offer financing")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("err = %v, want ErrLookupFailed", err)
	}
}

func TestResolveTier2ErrorStillTriesTier3(t *testing.T) {
	semantic := NewSemanticMatcher(&fakeEmbedder{err: errors.New("embed down")}, "embed-model", nil)
	synth := NewSynthesizer(&fakeClient{text: `{"answer": "Yes, we offer financing.", "confidence": 0.8, "source": "q1"}`}, "model-a")
	r := NewResolver(semantic, synth, nil, time.Second, nil)

	cfg := company.Defaulted("co-1")
	cfg.QAPairs = []company.QAPair{{ID: "q1", Question: "Do you offer financing?", Answer: "Yes."}}

	res, attempts, err := r.Resolve(context.Background(), cfg, "do you offer financing")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Tier != 3 {
		t.Fatalf("result = %+v, want tier 3 hit", res)
	}
	if len(attempts) != 3 {
		t.Errorf("attempts = %+v, want all three tiers recorded", attempts)
	}
	if attempts[1].Err == "" {
		t.Errorf("tier2 error not recorded: %+v", attempts[1])
	}
}

func TestResolveReshapeFailureShipsVerbatim(t *testing.T) {
	reshaper := NewReshaper(&fakeClient{err: errors.New("model down")}, "model-a", nil)
	r := NewResolver(nil, nil, reshaper, time.Second, nil)
	cfg := scenarioConfig()

	res, _, err := r.Resolve(context.Background(), cfg, "what hours are you open")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.FactualText != cfg.Scenarios[0].Answer {
		t.Errorf("text = %q, want verbatim fact", res.FactualText)
	}
	if res.Reshaped {
		t.Error("Reshaped must be false when the reshape call failed")
	}
}

func TestResolveReshapeSuccess(t *testing.T) {
	reshaper := NewReshaper(&fakeClient{text: "We're here weekdays from 8 in the morning until 6!"}, "model-a", nil)
	r := NewResolver(nil, nil, reshaper, time.Second, nil)

	res, _, err := r.Resolve(context.Background(), scenarioConfig(), "what hours are you open")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Reshaped {
		t.Error("expected reshaped result")
	}
	if res.FactualText != "We're here weekdays from 8 in the morning until 6!" {
		t.Errorf("text = %q", res.FactualText)
	}
}

func TestMatchScenarioRequiresTwoKeywords(t *testing.T) {
	cfg := scenarioConfig()

	if res := matchScenario(cfg, "are you open right now"); res != nil {
		t.Errorf("single keyword matched: %+v", res)
	}
	if res := matchScenario(cfg, "what hours are you open"); res == nil {
		t.Error("two keywords should match")
	}
}

func TestSynthesizerEmptyAnswerScoresZero(t *testing.T) {
	synth := NewSynthesizer(&fakeClient{text: `{"answer": "", "confidence": 0.9, "source": ""}`}, "model-a")
	cfg := company.Defaulted("co-1")
	cfg.Variables["hours"] = "8-6 weekdays"

	res, err := synth.Synthesize(context.Background(), cfg, "do you sell pizza")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Confidence != 0 {
		t.Errorf("empty answer confidence = %v, want 0", res.Confidence)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
}
