package engine

// Deterministic fallback decisions, keyed off the frontline classifier.
// These run whenever the model reply is unusable or the model backend is
// unavailable, so the conversation always advances.

const (
	fallbackCloseReply     = "Thank you for your call. Have a great day!"
	fallbackEmergencyReply = "I understand this is urgent. Can you give me the service address and the best phone number to reach you, and I'll get a technician dispatched right away?"
	fallbackClarifyReply   = "I'm sorry, I didn't quite catch that. Could you tell me a bit more about what you need help with today?"
)

// FallbackDecision builds a safe deterministic decision from the
// classifier output alone.
func FallbackDecision(cl Classification) *Decision {
	d := &Decision{FallbackUsed: true}

	switch {
	case cl.Intent == IntentWrongNumber || cl.Intent == IntentSpam:
		d.Action = ActionCloseCall
		d.NextPrompt = fallbackCloseReply
	case cl.Intent == IntentEmergency || cl.Signals.MaybeEmergency:
		d.Action = ActionAskQuestion
		d.NextPrompt = fallbackEmergencyReply
	default:
		d.Action = ActionClarifyIntent
		d.NextPrompt = fallbackClarifyReply
	}

	return d
}
