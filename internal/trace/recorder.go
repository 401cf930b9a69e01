// Package trace provides fire-and-forget observability for every turn
// decision. Recording never blocks the reply path and never propagates
// its own failures to the caller.
package trace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// TurnRecord captures everything worth auditing about one processed turn.
type TurnRecord struct {
	CallID    string    `json:"call_id" dynamodbav:"callId"`
	CompanyID string    `json:"company_id" dynamodbav:"companyId"`
	Turn      int       `json:"turn" dynamodbav:"turn"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`

	Intent               string   `json:"intent,omitempty" dynamodbav:"intent,omitempty"`
	IntentConfidence     float64  `json:"intent_confidence,omitempty" dynamodbav:"intentConfidence,omitempty"`
	Action               string   `json:"action" dynamodbav:"action"`
	FallbackUsed         bool     `json:"fallback_used,omitempty" dynamodbav:"fallbackUsed,omitempty"`
	GuardrailsTriggered  []string `json:"guardrails_triggered,omitempty" dynamodbav:"guardrailsTriggered,omitempty"`
	KnowledgeTier        int      `json:"knowledge_tier,omitempty" dynamodbav:"knowledgeTier,omitempty"`
	KnowledgeConfidence  float64  `json:"knowledge_confidence,omitempty" dynamodbav:"knowledgeConfidence,omitempty"`
	KnowledgeCost        float64  `json:"knowledge_cost,omitempty" dynamodbav:"knowledgeCost,omitempty"`
	AppointmentCreated   bool     `json:"appointment_created,omitempty" dynamodbav:"appointmentCreated,omitempty"`
	InputTokens          int32    `json:"input_tokens,omitempty" dynamodbav:"inputTokens,omitempty"`
	OutputTokens         int32    `json:"output_tokens,omitempty" dynamodbav:"outputTokens,omitempty"`
	ProcessingDurationMs int64    `json:"processing_duration_ms,omitempty" dynamodbav:"processingDurationMs,omitempty"`
}

// UsageSummary is the per-call rollup recorded at call end.
type UsageSummary struct {
	CallID       string    `json:"call_id"`
	CompanyID    string    `json:"company_id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Turns        int       `json:"turns"`
	InputTokens  int32     `json:"input_tokens"`
	OutputTokens int32     `json:"output_tokens"`
	Outcome      string    `json:"outcome,omitempty"`
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Recorder publishes trace records to SQS for asynchronous draining. If
// queueURL is empty, all operations are no-ops.
type Recorder struct {
	client   sqsAPI
	queueURL string
	logger   *logging.Logger
	timeout  time.Duration
}

// NewRecorder creates a trace recorder.
func NewRecorder(client sqsAPI, queueURL string, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

// Enabled returns true if recording is configured.
func (r *Recorder) Enabled() bool {
	return r != nil && r.client != nil && r.queueURL != ""
}

// RecordTurn publishes a turn record in the background. The caller's
// context is deliberately not used: the reply must not wait on this, and
// the send should survive the request ending.
func (r *Recorder) RecordTurn(rec TurnRecord) {
	if !r.Enabled() {
		return
	}
	go r.send("turn", rec)
}

// RecordUsage publishes a call usage summary in the background.
func (r *Recorder) RecordUsage(summary UsageSummary) {
	if !r.Enabled() {
		return
	}
	go r.send("usage", summary)
}

func (r *Recorder) send(kind string, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("trace recorder panic recovered", "kind", kind, "panic", rec)
		}
	}()

	envelope := struct {
		Kind    string `json:"kind"`
		Payload any    `json:"payload"`
	}{Kind: kind, Payload: payload}

	body, err := json.Marshal(envelope)
	if err != nil {
		r.logger.Error("trace record marshal failed", "kind", kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		r.logger.Error("trace record send failed", "kind", kind, "error", err)
	}
}
