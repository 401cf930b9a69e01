package engine

import "testing"

func TestFallbackDecisionClosesSpamAndWrongNumber(t *testing.T) {
	for _, intent := range []Intent{IntentSpam, IntentWrongNumber} {
		d := FallbackDecision(Classification{Intent: intent, Confidence: 0.95})
		if d.Action != ActionCloseCall {
			t.Errorf("%s: action = %s, want close_call", intent, d.Action)
		}
		if d.NextPrompt != "Thank you for your call. Have a great day!" {
			t.Errorf("%s: prompt = %q", intent, d.NextPrompt)
		}
		if !d.FallbackUsed {
			t.Errorf("%s: FallbackUsed not set", intent)
		}
	}
}

func TestFallbackDecisionGathersOnEmergency(t *testing.T) {
	d := FallbackDecision(Classification{Intent: IntentEmergency, Confidence: 0.98})
	if d.Action != ActionAskQuestion {
		t.Errorf("action = %s, want ask_question", d.Action)
	}

	// The signal alone is enough even when another intent won.
	d = FallbackDecision(Classification{
		Intent:  IntentBookService,
		Signals: ClassifierSignals{MaybeEmergency: true},
	})
	if d.Action != ActionAskQuestion {
		t.Errorf("signal-only: action = %s, want ask_question", d.Action)
	}
}

func TestFallbackDecisionClarifiesOtherwise(t *testing.T) {
	d := FallbackDecision(Classification{Intent: IntentQuestion, Confidence: 0.8})
	if d.Action != ActionClarifyIntent {
		t.Errorf("action = %s, want clarify_intent", d.Action)
	}
	if d.NextPrompt == "" {
		t.Error("clarify prompt must not be empty")
	}
}
