package engine

import (
	"regexp"
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

// Guardrails run after the model call, because no prompt instruction is
// obeyed 100% of the time. They scan the outgoing reply for three hazard
// classes and neutralize them deterministically. Terminal actions
// (close_call, escalate_to_human) pass through untouched.

const guardrailPriceEscalation = "That's a great question about pricing. Let me have one of our team members give you an exact quote — can I take your name and number so they can call you right back?"

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[$€£]\s?\d`),
	regexp.MustCompile(`(?i)\b\d+\s?(dollars|bucks)\b`),
	regexp.MustCompile(`(?i)\b(costs?|charges?|price[ds]?|fees?)\b.*\b\d`),
	regexp.MustCompile(`(?i)\b(free\s+of\s+charge|no\s+charge|at\s+no\s+cost)\b`),
}

// arrivalPromises maps unconditional dispatch language to softened wording.
var arrivalPromises = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bwe('ll| will) be there\b`), "we can schedule a visit"},
	{regexp.MustCompile(`(?i)\b(someone|a technician) (will|is going to) (be there|arrive)\b`), "a technician can come out"},
	{regexp.MustCompile(`(?i)\bwe('ll| will) (send|dispatch) someone (right away|immediately|now)\b`), "we can get someone scheduled"},
	{regexp.MustCompile(`(?i)\bwithin (the hour|\d+ (minutes|hours))\b`), "as soon as we can"},
}

// capabilityClaims are claims that require configuration backing.
var capabilityClaims = []struct {
	re      *regexp.Regexp
	backed  func(caps company.Capabilities) bool
	pattern string
}{
	{regexp.MustCompile(`(?i)[^.!?]*\b(24/7|24 hours a day|around the clock|any time of day)\b[^.!?]*[.!?]?\s*`),
		func(caps company.Capabilities) bool { return caps.Open24x7 }, "claim:24x7"},
	{regexp.MustCompile(`(?i)[^.!?]*\bemergency service\b[^.!?]*[.!?]?\s*`),
		func(caps company.Capabilities) bool { return caps.EmergencyService }, "claim:emergency_service"},
	{regexp.MustCompile(`(?i)[^.!?]*\b(weekends?|saturday|sunday) (service|appointments?|availab)\w*\b[^.!?]*[.!?]?\s*`),
		func(caps company.Capabilities) bool { return caps.WeekendService }, "claim:weekend_service"},
}

// ApplyGuardrails rewrites a decision in place and records which hazard
// checks fired.
func ApplyGuardrails(d *Decision, cfg *company.Config) {
	if d == nil || cfg == nil {
		return
	}
	if d.Action.IsTerminal() {
		return
	}

	// Price talk with no price-like configuration while answering from
	// knowledge means the model is inventing numbers. Escalate.
	if d.Action == ActionAnswerWithKnowledge && !cfg.HasPriceVariable() && containsPriceTalk(d.NextPrompt) {
		d.Action = ActionEscalateToHuman
		d.NextPrompt = guardrailPriceEscalation
		d.GuardrailsTriggered = append(d.GuardrailsTriggered, "price_without_config")
		return
	}

	// Unconditional arrival promises are only allowed when booking.
	if d.Action != ActionInitiateBooking {
		for _, p := range arrivalPromises {
			if p.re.MatchString(d.NextPrompt) {
				d.NextPrompt = p.re.ReplaceAllString(d.NextPrompt, p.replacement)
				d.GuardrailsTriggered = append(d.GuardrailsTriggered, "arrival_promise_softened")
			}
		}
	}

	// Capability claims the configuration does not back get stripped
	// sentence-by-sentence.
	for _, claim := range capabilityClaims {
		if claim.backed(cfg.Capabilities) {
			continue
		}
		if claim.re.MatchString(d.NextPrompt) {
			d.NextPrompt = strings.TrimSpace(claim.re.ReplaceAllString(d.NextPrompt, ""))
			d.GuardrailsTriggered = append(d.GuardrailsTriggered, claim.pattern)
		}
	}

	// Stripping everything leaves the caller with silence; fall back to a
	// clarifying question instead.
	if strings.TrimSpace(d.NextPrompt) == "" {
		d.Action = ActionClarifyIntent
		d.NextPrompt = fallbackClarifyReply
		d.GuardrailsTriggered = append(d.GuardrailsTriggered, "emptied_reply")
	}
}

func containsPriceTalk(reply string) bool {
	for _, re := range pricePatterns {
		if re.MatchString(reply) {
			return true
		}
	}
	return false
}
