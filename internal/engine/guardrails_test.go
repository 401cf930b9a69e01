package engine

import (
	"strings"
	"testing"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

func TestGuardrailPriceWithoutConfigEscalates(t *testing.T) {
	cfg := company.Defaulted("co-1")

	d := &Decision{
		Action:     ActionAnswerWithKnowledge,
		NextPrompt: "A new furnace install usually costs around $4,500.",
	}
	ApplyGuardrails(d, cfg)

	if d.Action != ActionEscalateToHuman {
		t.Errorf("action = %s, want escalate_to_human", d.Action)
	}
	if strings.Contains(d.NextPrompt, "$") {
		t.Errorf("invented price leaked through: %q", d.NextPrompt)
	}
	if len(d.GuardrailsTriggered) == 0 || d.GuardrailsTriggered[0] != "price_without_config" {
		t.Errorf("triggered = %v", d.GuardrailsTriggered)
	}
}

func TestGuardrailPriceWithConfigPassesThrough(t *testing.T) {
	cfg := company.Defaulted("co-1")
	cfg.Variables["dispatch_fee"] = "$89"

	d := &Decision{
		Action:     ActionAnswerWithKnowledge,
		NextPrompt: "Our dispatch fee is $89, which goes toward the repair.",
	}
	ApplyGuardrails(d, cfg)

	if d.Action != ActionAnswerWithKnowledge {
		t.Errorf("configured price escalated: action = %s", d.Action)
	}
	if len(d.GuardrailsTriggered) != 0 {
		t.Errorf("triggered = %v", d.GuardrailsTriggered)
	}
}

func TestGuardrailSoftensArrivalPromises(t *testing.T) {
	cfg := company.Defaulted("co-1")

	d := &Decision{
		Action:     ActionAskQuestion,
		NextPrompt: "We'll be there within the hour. What's the address?",
	}
	ApplyGuardrails(d, cfg)

	if strings.Contains(strings.ToLower(d.NextPrompt), "we'll be there") {
		t.Errorf("arrival promise survived: %q", d.NextPrompt)
	}
	found := false
	for _, g := range d.GuardrailsTriggered {
		if g == "arrival_promise_softened" {
			found = true
		}
	}
	if !found {
		t.Errorf("triggered = %v", d.GuardrailsTriggered)
	}
}

func TestGuardrailAllowsArrivalLanguageWhenBooking(t *testing.T) {
	cfg := company.Defaulted("co-1")

	d := &Decision{
		Action:     ActionInitiateBooking,
		NextPrompt: "You're all set. A technician will arrive Tuesday morning.",
	}
	ApplyGuardrails(d, cfg)

	if d.NextPrompt != "You're all set. A technician will arrive Tuesday morning." {
		t.Errorf("booking confirmation rewritten: %q", d.NextPrompt)
	}
}

func TestGuardrailStripsUnbackedCapabilityClaims(t *testing.T) {
	cfg := company.Defaulted("co-1")
	// No capabilities configured.

	d := &Decision{
		Action:     ActionSmallTalk,
		NextPrompt: "We're available 24/7 for you. What can I help with today?",
	}
	ApplyGuardrails(d, cfg)

	if strings.Contains(d.NextPrompt, "24/7") {
		t.Errorf("24/7 claim survived: %q", d.NextPrompt)
	}
	if !strings.Contains(d.NextPrompt, "What can I help with today?") {
		t.Errorf("unrelated sentence was stripped too: %q", d.NextPrompt)
	}
}

func TestGuardrailKeepsBackedCapabilityClaims(t *testing.T) {
	cfg := company.Defaulted("co-1")
	cfg.Capabilities.EmergencyService = true

	d := &Decision{
		Action:     ActionAskQuestion,
		NextPrompt: "We do offer emergency service. What's the address?",
	}
	ApplyGuardrails(d, cfg)

	if !strings.Contains(d.NextPrompt, "emergency service") {
		t.Errorf("backed claim stripped: %q", d.NextPrompt)
	}
}

func TestGuardrailEmptiedReplyBecomesClarify(t *testing.T) {
	cfg := company.Defaulted("co-1")

	d := &Decision{
		Action:     ActionSmallTalk,
		NextPrompt: "We're open 24 hours a day.",
	}
	ApplyGuardrails(d, cfg)

	if d.Action != ActionClarifyIntent {
		t.Errorf("action = %s, want clarify_intent after reply emptied", d.Action)
	}
	if strings.TrimSpace(d.NextPrompt) == "" {
		t.Error("caller must never get an empty reply")
	}
}

func TestGuardrailSkipsTerminalActions(t *testing.T) {
	cfg := company.Defaulted("co-1")

	d := &Decision{
		Action:     ActionCloseCall,
		NextPrompt: "We'll be there within the hour, goodbye!",
	}
	ApplyGuardrails(d, cfg)

	if d.NextPrompt != "We'll be there within the hour, goodbye!" {
		t.Errorf("terminal action rewritten: %q", d.NextPrompt)
	}
	if len(d.GuardrailsTriggered) != 0 {
		t.Errorf("triggered = %v", d.GuardrailsTriggered)
	}
}
