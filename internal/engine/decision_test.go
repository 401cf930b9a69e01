package engine

import (
	"errors"
	"testing"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	raw := `{
		"action": "ask_question",
		"next_prompt": "What's the service address?",
		"updates": {
			"extracted": {"contact": {"name": "Ray Delgado"}},
			"flags": {"ready_to_book": false}
		}
	}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != ActionAskQuestion {
		t.Errorf("action = %s", d.Action)
	}
	if d.Updates.Extracted.Contact.Name != "Ray Delgado" {
		t.Errorf("extracted not parsed: %+v", d.Updates.Extracted)
	}
}

func TestParseDecisionStripsFencesAndProse(t *testing.T) {
	cases := []string{
		"```json\n{\"action\": \"small_talk\", \"next_prompt\": \"Happy to help!\"}\n```",
		"Here is my decision:\n{\"action\": \"small_talk\", \"next_prompt\": \"Happy to help!\"}\nLet me know.",
		"```\n{\"action\": \"small_talk\", \"next_prompt\": \"Happy to help!\"}```",
	}
	for i, raw := range cases {
		d, err := ParseDecision(raw)
		if err != nil {
			t.Errorf("case %d: ParseDecision: %v", i, err)
			continue
		}
		if d.Action != ActionSmallTalk || d.NextPrompt != "Happy to help!" {
			t.Errorf("case %d: decision = %+v", i, d)
		}
	}
}

func TestParseDecisionRejectsProtocolViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no json", "I think we should ask a question."},
		{"unknown action", `{"action": "transfer_to_mars", "next_prompt": "hi"}`},
		{"missing action", `{"next_prompt": "hi"}`},
		{"missing prompt", `{"action": "ask_question"}`},
		{"blank prompt", `{"action": "ask_question", "next_prompt": "   "}`},
		{"broken json", `{"action": "ask_question", "next_prompt": }`},
	}
	for _, tc := range cases {
		if _, err := ParseDecision(tc.raw); !errors.Is(err, ErrMalformedDecision) {
			t.Errorf("%s: err = %v, want ErrMalformedDecision", tc.name, err)
		}
	}
}

func TestActionIsTerminal(t *testing.T) {
	if !ActionCloseCall.IsTerminal() || !ActionEscalateToHuman.IsTerminal() {
		t.Error("close_call and escalate_to_human are terminal")
	}
	if ActionAskQuestion.IsTerminal() || ActionInitiateBooking.IsTerminal() {
		t.Error("conversational actions are not terminal")
	}
}
