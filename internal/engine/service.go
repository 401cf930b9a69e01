package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/archive"
	"github.com/wolfman30/tradeline-ai-platform/internal/booking"
	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/knowledge"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
	"github.com/wolfman30/tradeline-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/tradeline-ai-platform/internal/trace"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const (
	escalationReply = "Let me get one of our team members to help you with that. Can I put you through, or would you like a call back?"

	defaultLLMTimeout = 12 * time.Second
	decisionMaxTokens = 600
)

// configLoader is the read-only configuration surface the engine consumes.
type configLoader interface {
	Load(ctx context.Context, companyID string) (*company.Config, error)
}

// TurnResult is what ProcessCallerTurn hands back to the transport layer.
type TurnResult struct {
	NextPrompt string    `json:"next_prompt"`
	Decision   *Decision `json:"decision"`
}

// Engine coordinates one caller turn end to end: classify, decide,
// resolve knowledge, merge state, materialize a booking, record a trace.
//
// Its contract is "always returns": no error exit is visible to callers,
// and every dependency failure degrades to a safe conversational
// continuation.
type Engine struct {
	contexts     *callcontext.Store
	configs      configLoader
	classifier   *Classifier
	llmClient    llm.Client
	model        string
	llmTimeout   time.Duration
	resolver     *knowledge.Resolver
	materializer *booking.Materializer
	recorder     *trace.Recorder
	archives     *archive.Store
	metrics      *metrics.EngineMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// EngineOption configures optional collaborators.
type EngineOption func(*Engine)

// WithResolver wires the tiered knowledge resolver.
func WithResolver(r *knowledge.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = r }
}

// WithMaterializer wires the appointment materializer.
func WithMaterializer(m *booking.Materializer) EngineOption {
	return func(e *Engine) { e.materializer = m }
}

// WithRecorder wires the fire-and-forget trace recorder.
func WithRecorder(r *trace.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithArchive wires the call archive used by FinalizeCall.
func WithArchive(a *archive.Store) EngineOption {
	return func(e *Engine) { e.archives = a }
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *metrics.EngineMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLLMTimeout bounds each model call.
func WithLLMTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.llmTimeout = d
		}
	}
}

// NewEngine wires the turn engine. contexts, configs, and classifier are
// required; the LLM client may be nil, which forces every decision down
// the deterministic fallback path.
func NewEngine(contexts *callcontext.Store, configs configLoader, classifier *Classifier, llmClient llm.Client, model string, logger *logging.Logger, opts ...EngineOption) *Engine {
	if contexts == nil {
		panic("engine: context store required")
	}
	if configs == nil {
		panic("engine: config loader required")
	}
	if classifier == nil {
		panic("engine: classifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		contexts:   contexts,
		configs:    configs,
		classifier: classifier,
		llmClient:  llmClient,
		model:      model,
		llmTimeout: defaultLLMTimeout,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitCallContext creates the session state for a new call and returns it
// along with the configured greeting.
func (e *Engine) InitCallContext(ctx context.Context, callID, companyID, trade, configVersion string) (*callcontext.Context, string) {
	cfg := e.loadConfig(ctx, companyID)
	if trade == "" {
		trade = cfg.Trade
	}
	if configVersion == "" {
		configVersion = cfg.ConfigVersion
	}
	cc := e.contexts.Init(ctx, callID, companyID, trade, configVersion)
	return cc, cfg.Greeting
}

// ProcessCallerTurn is the single public entry point invoked once per
// caller utterance. It always returns a valid result; internal errors are
// converted to a safe generic clarifying reply.
func (e *Engine) ProcessCallerTurn(ctx context.Context, companyID, callID, speaker, text string) (result *TurnResult) {
	started := e.now()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("turn processing panic recovered",
				"call_id", callID, "panic", fmt.Sprint(rec))
			result = &TurnResult{
				NextPrompt: fallbackClarifyReply,
				Decision:   &Decision{Action: ActionClarifyIntent, NextPrompt: fallbackClarifyReply, FallbackUsed: true},
			}
			e.metrics.ObserveTurn(string(ActionClarifyIntent), "panic")
		}
	}()

	cfg := e.loadConfig(ctx, companyID)

	// A failed load degrades to a fresh re-init rather than aborting the call.
	cc := e.contexts.Load(ctx, callID)
	if cc == nil {
		cc = e.contexts.Init(ctx, callID, companyID, cfg.Trade, cfg.ConfigVersion)
	}

	// Agent-side utterances (TTS confirmations replayed by the transport)
	// only extend the transcript.
	if speaker != callcontext.RoleCaller && speaker != "" {
		cc.AppendTranscript(speaker, text, started)
		e.contexts.Save(ctx, cc)
		d := &Decision{Action: ActionNoOp, NextPrompt: ""}
		return &TurnResult{NextPrompt: "", Decision: d}
	}

	cc.AppendTranscript(callcontext.RoleCaller, text, started)

	cl := e.classifier.Classify(ctx, text, cfg, cc)
	if cl.ShouldOverwriteIntent() {
		cc.CurrentIntent = string(cl.Intent)
	}

	decision := e.decide(ctx, cfg, cc, cl, text)

	cc.AddTierResolution(callcontext.TierResolution{
		Tier:       0,
		Timestamp:  e.now(),
		Action:     string(decision.Action),
		Confidence: cl.Confidence,
		Reasoning:  decision.DebugNotes,
	})

	knowledgeResult := e.resolveKnowledge(ctx, cfg, cc, decision)

	ApplyGuardrails(decision, cfg)
	for _, check := range decision.GuardrailsTriggered {
		e.metrics.ObserveGuardrail(check)
	}

	// Merge model-proposed state. The readiness flag is only honored when
	// the merged context actually satisfies the checklist.
	cc.MergeExtracted(decision.Updates.Extracted)
	if decision.Updates.Flags.ReadyToBook && cc.BookingReady() {
		cc.ReadyToBook = true
	}

	appointmentCreated := e.maybeBook(ctx, cfg, cc, cl, decision)

	// Transcript and save come after booking: a persistence failure rewrites
	// the decision, and the stored transcript must carry what the caller
	// actually hears.
	cc.AppendTranscript(callcontext.RoleAgent, decision.NextPrompt, e.now())
	e.contexts.Save(ctx, cc)

	e.recordTurn(cc, cl, decision, knowledgeResult, appointmentCreated, started)
	e.metrics.ObserveTurn(string(decision.Action), "ok")

	return &TurnResult{NextPrompt: decision.NextPrompt, Decision: decision}
}

// FinalizeCall archives the context durably, records usage, and deletes
// the session state. The context is only deleted after a successful
// archive (or when archival is not configured).
func (e *Engine) FinalizeCall(ctx context.Context, callID string, startedAt, endedAt time.Time, usage trace.UsageSummary) error {
	raw, err := e.contexts.Dump(ctx, callID)
	if err != nil {
		return fmt.Errorf("engine: finalize dump: %w", err)
	}
	if raw == nil {
		return nil
	}

	var cc callcontext.Context
	companyID := usage.CompanyID
	if err := json.Unmarshal(raw, &cc); err == nil && cc.CompanyID != "" {
		companyID = cc.CompanyID
	}

	if e.archives.Enabled() {
		record := &archive.CallRecord{
			CallID:    callID,
			CompanyID: companyID,
			StartedAt: startedAt,
			EndedAt:   endedAt,
			Context:   raw,
		}
		if err := e.archives.ArchiveCall(ctx, record); err != nil {
			return fmt.Errorf("engine: finalize archive: %w", err)
		}
	}

	usage.CallID = callID
	usage.CompanyID = companyID
	usage.StartedAt = startedAt
	usage.EndedAt = endedAt
	e.recorder.RecordUsage(usage)

	e.contexts.Delete(ctx, callID)
	return nil
}

// decide builds the decision prompt, invokes the model once, and falls
// back deterministically on any protocol violation or backend failure.
func (e *Engine) decide(ctx context.Context, cfg *company.Config, cc *callcontext.Context, cl Classification, utterance string) *Decision {
	if !cfg.Flags.OrchestratorEnabled || e.llmClient == nil {
		e.metrics.ObserveFallback("orchestrator_disabled")
		return FallbackDecision(cl)
	}

	llmCtx, cancel := context.WithTimeout(ctx, e.llmTimeout)
	defer cancel()

	llmStart := e.now()
	resp, err := e.llmClient.Complete(llmCtx, llm.Request{
		Model:       e.model,
		System:      []string{buildDecisionSystemPrompt(cfg)},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: buildDecisionUserPrompt(cc, cl, utterance)}},
		MaxTokens:   decisionMaxTokens,
		Temperature: 0.2,
	})
	e.metrics.ObserveLLMLatency("decision", e.now().Sub(llmStart).Seconds())

	if err != nil {
		e.logger.Warn("decision completion failed, using fallback",
			"call_id", cc.CallID, "error", err)
		e.metrics.ObserveFallback("llm_error")
		return FallbackDecision(cl)
	}

	decision, err := ParseDecision(resp.Text)
	if err != nil {
		e.logger.Warn("decision parse failed, using fallback",
			"call_id", cc.CallID, "error", err)
		e.metrics.ObserveFallback("malformed_decision")
		return FallbackDecision(cl)
	}

	if cfg.Flags.DebugOrchestrator && decision.DebugNotes != "" {
		e.logger.Debug("orchestrator debug notes",
			"call_id", cc.CallID, "notes", decision.DebugNotes)
	}

	decision.tokenUsage = resp.Usage
	return decision
}

// resolveKnowledge runs the tiered waterfall when the decision asks for
// it, rewriting the reply with the verified fact or downgrading the
// action when nothing clears the confidence gate.
func (e *Engine) resolveKnowledge(ctx context.Context, cfg *company.Config, cc *callcontext.Context, decision *Decision) *knowledge.Result {
	wantsKnowledge := decision.NeedsKnowledge ||
		(decision.Action == ActionAnswerWithKnowledge && decision.KnowledgeQuery != "")
	if !wantsKnowledge || e.resolver == nil {
		return nil
	}

	query := decision.KnowledgeQuery
	if query == "" {
		query = lastCallerUtterance(cc)
	}

	result, attempts, err := e.resolver.Resolve(ctx, cfg, query)
	for _, attempt := range attempts {
		outcome := "miss"
		if attempt.Hit {
			outcome = "hit"
		}
		if attempt.Err != "" {
			outcome = "error"
		}
		e.metrics.ObserveTier(strconv.Itoa(attempt.Tier), outcome)
		cc.AddTierResolution(callcontext.TierResolution{
			Tier:       attempt.Tier,
			Timestamp:  e.now(),
			Action:     outcome,
			Confidence: attempt.Confidence,
			SourceID:   attempt.SourceID,
			Reasoning:  attempt.Err,
		})
	}

	if err != nil {
		e.logger.Error("knowledge lookup failed, escalating",
			"call_id", cc.CallID, "error", err)
		decision.Action = ActionEscalateToHuman
		decision.NextPrompt = escalationReply
		return nil
	}

	if result == nil {
		// Nothing cleared the confidence gate; never present a guess as fact.
		decision.Action = ActionClarifyIntent
		decision.NextPrompt = fallbackClarifyReply
		return nil
	}

	decision.NextPrompt = result.FactualText
	return result
}

// maybeBook materializes the appointment once the context is
// booking-ready and the decision initiates it. Booking persistence errors
// change the visible action to an escalation — no silent retry.
func (e *Engine) maybeBook(ctx context.Context, cfg *company.Config, cc *callcontext.Context, cl Classification, decision *Decision) bool {
	if e.materializer == nil {
		return false
	}
	if decision.Action != ActionInitiateBooking || !cc.ReadyToBook {
		return false
	}
	if cc.AppointmentID != "" {
		return false
	}

	appt, err := e.materializer.Materialize(ctx, cfg, cc, cl.Signals.MaybeEmergency)
	if err != nil {
		e.logger.Error("appointment materialization failed",
			"call_id", cc.CallID, "error", err)
		decision.Action = ActionEscalateToHuman
		decision.NextPrompt = escalationReply
		return false
	}

	// Persisted by the turn's save, which runs after booking.
	cc.AppointmentID = appt.ID
	return true
}

func (e *Engine) recordTurn(cc *callcontext.Context, cl Classification, decision *Decision, kr *knowledge.Result, appointmentCreated bool, started time.Time) {
	rec := trace.TurnRecord{
		CallID:               cc.CallID,
		CompanyID:            cc.CompanyID,
		Turn:                 callerTurns(cc),
		Timestamp:            started,
		Intent:               string(cl.Intent),
		IntentConfidence:     cl.Confidence,
		Action:               string(decision.Action),
		FallbackUsed:         decision.FallbackUsed,
		GuardrailsTriggered:  decision.GuardrailsTriggered,
		AppointmentCreated:   appointmentCreated,
		InputTokens:          decision.tokenUsage.InputTokens,
		OutputTokens:         decision.tokenUsage.OutputTokens,
		ProcessingDurationMs: e.now().Sub(started).Milliseconds(),
	}
	if kr != nil {
		rec.KnowledgeTier = kr.Tier
		rec.KnowledgeConfidence = kr.Confidence
		rec.KnowledgeCost = kr.Cost
	}
	e.recorder.RecordTurn(rec)
}

// loadConfig never fails: a config load error degrades to the defaulted
// configuration so the call can continue generically.
func (e *Engine) loadConfig(ctx context.Context, companyID string) *company.Config {
	cfg, err := e.configs.Load(ctx, companyID)
	if err != nil || cfg == nil {
		e.logger.Error("company config load failed, using defaults",
			"company_id", companyID, "error", err)
		return company.Defaulted(companyID)
	}
	return cfg
}

// callerTurns numbers turns by caller utterances only, so the first
// caller turn is 1 regardless of agent entries interleaved since.
func callerTurns(cc *callcontext.Context) int {
	n := 0
	for _, entry := range cc.Transcript {
		if entry.Role == callcontext.RoleCaller {
			n++
		}
	}
	return n
}

func lastCallerUtterance(cc *callcontext.Context) string {
	for i := len(cc.Transcript) - 1; i >= 0; i-- {
		if cc.Transcript[i].Role == callcontext.RoleCaller {
			return cc.Transcript[i].Text
		}
	}
	return ""
}
