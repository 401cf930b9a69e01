package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

const decisionSystemPrompt = `You are the turn-by-turn decision maker for %s, a %s company's phone receptionist.
A caller is on the line. You receive the conversation state and the latest utterance, and you decide ONE next step.

YOU ARE SPEAKING ON THE PHONE. Replies must be 1-2 short spoken sentences. No lists, no markdown, no emoji.

ALLOWED ACTIONS (use exactly one):
- ask_question: ask for one missing piece of booking information
- confirm_info: repeat back information to verify it
- answer_with_knowledge: answer a factual question (set knowledge_query)
- initiate_booking: all booking fields are gathered, confirm the appointment
- update_booking: change an existing appointment for this call
- escalate_to_human: hand the call to a person
- small_talk: brief pleasantry, then steer back to business
- close_call: end the call politely
- clarify_intent: you cannot tell what the caller wants
- no_op: nothing to do (caller audio was empty or meaningless)

BOOKING READINESS CHECKLIST — all five before ready_to_book may be true:
1. contact name
2. contact phone number
3. service address (street and ZIP)
4. problem summary
5. preferred date or time window

RULES:
- Never invent prices, arrival times, or service capabilities.
- Never answer factual questions from memory; use answer_with_knowledge with a knowledge_query instead.
- Ask for ONE missing item at a time, in checklist order.
- If the caller reports a safety emergency, gather the dispatch essentials (address, phone) before anything else.

Respond with JSON ONLY, in exactly this shape:
{
  "action": "<one allowed action>",
  "next_prompt": "<what to say to the caller>",
  "updated_intent": "<optional new intent>",
  "updates": {
    "extracted": {
      "contact": {"name": "", "phone": "", "email": ""},
      "location": {"address_line1": "", "address_line2": "", "city": "", "state": "", "postal_code": ""},
      "problem": {"summary": "", "category": "", "urgency": ""},
      "scheduling": {"preferred_date": "", "preferred_window": ""},
      "access": {"notes": ""}
    },
    "flags": {"ready_to_book": false}
  },
  "knowledge_query": "<only for answer_with_knowledge>",
  "debug_notes": "<optional>"
}
Omit fields you are not changing. Include only values the caller actually stated.`

// buildDecisionSystemPrompt renders the fixed decision-making instructions
// for a company.
func buildDecisionSystemPrompt(cfg *company.Config) string {
	name := "the company"
	trade := "service"
	if cfg != nil {
		if strings.TrimSpace(cfg.Name) != "" {
			name = cfg.Name
		}
		if strings.TrimSpace(cfg.Trade) != "" {
			trade = cfg.Trade
		}
	}
	return fmt.Sprintf(decisionSystemPrompt, name, trade)
}

// buildDecisionUserPrompt renders the per-turn state the model decides on:
// extracted fields so far, classifier output, recent transcript, and the
// caller's latest utterance.
func buildDecisionUserPrompt(cc *callcontext.Context, cl Classification, utterance string) string {
	var b strings.Builder

	b.WriteString("CURRENT EXTRACTED STATE:\n")
	extracted, _ := json.Marshal(cc.Extracted)
	b.Write(extracted)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "CURRENT INTENT: %s\n", orDash(cc.CurrentIntent))
	fmt.Fprintf(&b, "READY_TO_BOOK: %t\n", cc.ReadyToBook)
	if cc.AppointmentID != "" {
		fmt.Fprintf(&b, "APPOINTMENT ALREADY CREATED: %s\n", cc.AppointmentID)
	}

	fmt.Fprintf(&b, "\nFRONTLINE CLASSIFIER: intent=%s confidence=%.2f emergency=%t wrong_number=%t spam=%t\n",
		cl.Intent, cl.Confidence,
		cl.Signals.MaybeEmergency, cl.Signals.MaybeWrongNumber, cl.Signals.MaybeSpam)

	if n := len(cc.Transcript); n > 0 {
		b.WriteString("\nRECENT TRANSCRIPT:\n")
		start := n - 6
		if start < 0 {
			start = 0
		}
		for _, entry := range cc.Transcript[start:] {
			fmt.Fprintf(&b, "%s: %s\n", entry.Role, entry.Text)
		}
	}

	fmt.Fprintf(&b, "\nCALLER SAYS: %s\n", utterance)
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
