package engine

import (
	"context"
	"testing"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

func TestClassifyIntents(t *testing.T) {
	c := NewClassifier(nil)
	cfg := company.Defaulted("co-1")
	ctx := context.Background()

	cases := []struct {
		utterance string
		want      Intent
	}{
		{"I smell gas in my basement", IntentEmergency},
		{"my basement is flooding, there's water everywhere", IntentEmergency},
		{"I need to schedule an appointment for my furnace", IntentBookService},
		{"can you send a technician out to look at it", IntentBookService},
		{"how much do you charge for a service call", IntentQuestion},
		{"do you service my area", IntentQuestion},
		{"I need to reschedule my appointment", IntentReschedule},
		{"sorry, wrong number", IntentWrongNumber},
		{"this is about your car's extended warranty", IntentSpam},
		{"hello!", IntentSmallTalk},
		{"xyzzy plugh", IntentUnknown},
	}

	for _, tc := range cases {
		got := c.Classify(ctx, tc.utterance, cfg, nil)
		if got.Intent != tc.want {
			t.Errorf("Classify(%q) = %s (%.2f), want %s",
				tc.utterance, got.Intent, got.Confidence, tc.want)
		}
	}
}

func TestClassifySignalsFireIndependently(t *testing.T) {
	c := NewClassifier(nil)
	cfg := company.Defaulted("co-1")

	got := c.Classify(context.Background(), "I want to book someone, there are sparks coming from the panel", cfg, nil)
	if !got.Signals.MaybeEmergency {
		t.Error("expected emergency signal alongside booking language")
	}
}

func TestClassifyCarriesEmergencyFromContext(t *testing.T) {
	c := NewClassifier(nil)
	cfg := company.Defaulted("co-1")
	cc := &callcontext.Context{CurrentIntent: string(IntentEmergency)}

	got := c.Classify(context.Background(), "the address is 12 Oak Street", cfg, cc)
	if !got.Signals.MaybeEmergency {
		t.Error("established emergency intent should keep the signal raised")
	}
}

func TestShouldOverwriteIntent(t *testing.T) {
	cases := []struct {
		name string
		cl   Classification
		want bool
	}{
		{"high confidence booking", Classification{Intent: IntentBookService, Confidence: 0.9}, true},
		{"at threshold", Classification{Intent: IntentBookService, Confidence: 0.7}, false},
		{"low confidence", Classification{Intent: IntentQuestion, Confidence: 0.4}, false},
		{"spam never overwrites", Classification{Intent: IntentSpam, Confidence: 0.95}, false},
		{"wrong number never overwrites", Classification{Intent: IntentWrongNumber, Confidence: 0.95}, false},
	}
	for _, tc := range cases {
		if got := tc.cl.ShouldOverwriteIntent(); got != tc.want {
			t.Errorf("%s: ShouldOverwriteIntent() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
