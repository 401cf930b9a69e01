package engine

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

var classifierTracer = otel.Tracer("tradeline/frontline-classifier")

// Intent is the first-pass classification of a caller utterance.
type Intent string

const (
	IntentUnknown     Intent = "unknown"
	IntentEmergency   Intent = "emergency"
	IntentBookService Intent = "book_service"
	IntentQuestion    Intent = "question"
	IntentReschedule  Intent = "reschedule"
	IntentSmallTalk   Intent = "small_talk"
	IntentWrongNumber Intent = "wrong_number"
	IntentSpam        Intent = "spam"
)

// ClassifierSignals are cheap boolean flags surfaced alongside the intent
// so hazards are visible even before the model is consulted.
type ClassifierSignals struct {
	MaybeEmergency   bool `json:"maybe_emergency"`
	MaybeWrongNumber bool `json:"maybe_wrong_number"`
	MaybeSpam        bool `json:"maybe_spam"`
}

// Classification is the frontline classifier output.
type Classification struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Signals    ClassifierSignals `json:"signals"`
	// MatchedKeyword is the pattern keyword that produced the intent.
	MatchedKeyword string `json:"matched_keyword,omitempty"`
}

// intentOverwriteThreshold: only classifications above this confidence may
// replace the context's accumulated intent.
const intentOverwriteThreshold = 0.7

type intentPattern struct {
	regex   *regexp.Regexp
	weight  float64
	keyword string
}

// Classifier is the pure, synchronous first-pass signal extractor. No
// network calls; it must stay in low single-digit milliseconds.
type Classifier struct {
	logger   *logging.Logger
	patterns map[Intent][]*intentPattern
}

// NewClassifier creates a frontline intent classifier.
func NewClassifier(logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}

	c := &Classifier{
		logger:   logger,
		patterns: make(map[Intent][]*intentPattern),
	}

	c.patterns[IntentEmergency] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(gas\s+leak|smell\s+gas|carbon\s+monoxide)\b`), weight: 0.98, keyword: "gas leak"},
		{regex: regexp.MustCompile(`(?i)\b(flood(ing|ed)?|burst\s+pipe|water\s+everywhere|sewage\s+backup)\b`), weight: 0.95, keyword: "flooding"},
		{regex: regexp.MustCompile(`(?i)\b(no\s+heat|furnace\s+(out|dead|down))\b`), weight: 0.85, keyword: "no heat"},
		{regex: regexp.MustCompile(`(?i)\b(sparks?|smoke|burning\s+smell|electrical\s+fire)\b`), weight: 0.95, keyword: "sparks"},
		{regex: regexp.MustCompile(`(?i)\bemergency\b`), weight: 0.9, keyword: "emergency"},
		{regex: regexp.MustCompile(`(?i)\bright\s+(now|away)\b.*\b(broken?|leak|out)\b`), weight: 0.75, keyword: "urgent now"},
	}

	c.patterns[IntentBookService] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(book|schedule|set\s+up)\b.*\b(appointment|visit|service|someone|tech)\b`), weight: 0.9, keyword: "schedule appointment"},
		{regex: regexp.MustCompile(`(?i)\b(send|get)\s+(someone|a\s+(tech|technician|plumber|electrician))\s+(out|over|here)\b`), weight: 0.85, keyword: "send someone"},
		{regex: regexp.MustCompile(`(?i)\bcome\s+(out|by|over)\b.*\b(look|fix|check)\b`), weight: 0.8, keyword: "come out"},
		{regex: regexp.MustCompile(`(?i)\bneed\s+(a\s+)?(repair|service|fix|someone)\b`), weight: 0.75, keyword: "need service"},
	}

	c.patterns[IntentReschedule] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(reschedule|move|change)\b.*\b(appointment|time|date)\b`), weight: 0.9, keyword: "reschedule"},
		{regex: regexp.MustCompile(`(?i)\bcancel\b.*\bappointment\b`), weight: 0.9, keyword: "cancel appointment"},
	}

	c.patterns[IntentQuestion] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(how\s+much|what\s+do\s+you\s+charge|price|cost|estimate)\b`), weight: 0.8, keyword: "pricing question"},
		{regex: regexp.MustCompile(`(?i)\b(do\s+you|can\s+you|are\s+you\s+able)\b`), weight: 0.72, keyword: "capability question"},
		{regex: regexp.MustCompile(`(?i)\b(what\s+are\s+your\s+hours|when\s+are\s+you\s+open|service\s+area)\b`), weight: 0.85, keyword: "hours question"},
		{regex: regexp.MustCompile(`(?i)\b(warranty|guarantee|licensed|insured)\b`), weight: 0.75, keyword: "credentials question"},
	}

	c.patterns[IntentWrongNumber] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(wrong\s+number|didn'?t\s+mean\s+to\s+call|sorry,?\s+wrong)\b`), weight: 0.95, keyword: "wrong number"},
		{regex: regexp.MustCompile(`(?i)\bwho\s+is\s+this\b.*\b(calling|number)\b`), weight: 0.6, keyword: "who is this"},
	}

	c.patterns[IntentSpam] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)\b(car'?s?\s+extended\s+warranty|final\s+notice|you'?ve\s+been\s+selected)\b`), weight: 0.95, keyword: "robocall script"},
		{regex: regexp.MustCompile(`(?i)\b(seo|google\s+listing|business\s+loan|merchant\s+services)\b.*\b(offer|help|improve)\b`), weight: 0.85, keyword: "solicitation"},
		{regex: regexp.MustCompile(`(?i)\bpress\s+\d\s+to\b`), weight: 0.9, keyword: "press to"},
	}

	c.patterns[IntentSmallTalk] = []*intentPattern{
		{regex: regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good\s+(morning|afternoon|evening))\b[\s!.,]*$`), weight: 0.8, keyword: "greeting"},
		{regex: regexp.MustCompile(`(?i)^\s*(thanks?( you)?|thank\s+you)\b`), weight: 0.75, keyword: "thanks"},
	}

	return c
}

// Classify analyzes a cleaned caller utterance. The company config supplies
// the filler-word list and synonym table used for cleaning; the current
// context lets repeated emergency mentions keep their weight.
func (c *Classifier) Classify(ctx context.Context, utterance string, cfg *company.Config, cc *callcontext.Context) Classification {
	ctx, span := classifierTracer.Start(ctx, "classifier.classify")
	defer span.End()
	_ = ctx

	cleaned := utterance
	if cfg != nil {
		cleaned = cfg.CleanUtterance(utterance)
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return Classification{Intent: IntentUnknown}
	}

	best := Classification{Intent: IntentUnknown}
	for intent, patterns := range c.patterns {
		for _, p := range patterns {
			if p.regex.MatchString(cleaned) && p.weight > best.Confidence {
				best = Classification{
					Intent:         intent,
					Confidence:     p.weight,
					MatchedKeyword: p.keyword,
				}
			}
		}
	}

	// Signals fire independently of which intent won.
	best.Signals = ClassifierSignals{
		MaybeEmergency:   c.anyMatch(IntentEmergency, cleaned) || (cc != nil && cc.CurrentIntent == string(IntentEmergency)),
		MaybeWrongNumber: c.anyMatch(IntentWrongNumber, cleaned),
		MaybeSpam:        c.anyMatch(IntentSpam, cleaned),
	}

	span.SetAttributes(
		attribute.String("classifier.intent", string(best.Intent)),
		attribute.Float64("classifier.confidence", best.Confidence),
		attribute.Bool("classifier.maybe_emergency", best.Signals.MaybeEmergency),
	)

	if best.Intent != IntentUnknown {
		c.logger.Debug("frontline intent classified",
			"intent", best.Intent,
			"confidence", best.Confidence,
			"keyword", best.MatchedKeyword,
		)
	}

	return best
}

// ShouldOverwriteIntent reports whether this classification is allowed to
// replace the context's accumulated intent. Low-confidence noise and
// spam/wrong-number hits never corrupt state.
func (cl Classification) ShouldOverwriteIntent() bool {
	if cl.Confidence <= intentOverwriteThreshold {
		return false
	}
	return cl.Intent != IntentSpam && cl.Intent != IntentWrongNumber
}

func (c *Classifier) anyMatch(intent Intent, text string) bool {
	for _, p := range c.patterns[intent] {
		if p.regex.MatchString(text) {
			return true
		}
	}
	return false
}
