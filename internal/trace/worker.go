package trace

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const (
	defaultWorkerCount = 2
	defaultWaitSeconds = 2
	defaultBatchSize   = 5
)

type drainQueueAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Worker drains trace envelopes from SQS and persists turn records to the
// turn store. Usage summaries are logged and dropped; cost rollup happens
// downstream of the table.
type Worker struct {
	client   drainQueueAPI
	queueURL string
	turns    *TurnStore
	logger   *logging.Logger

	workers   int
	waitSecs  int
	batchSize int
	wg        sync.WaitGroup
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*Worker)

// WithWorkerCount sets the number of concurrent receive loops.
func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// NewWorker creates a trace drain worker.
func NewWorker(client drainQueueAPI, queueURL string, turns *TurnStore, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if client == nil {
		panic("trace: SQS client required")
	}
	if queueURL == "" {
		panic("trace: queue URL required")
	}
	if turns == nil {
		panic("trace: turn store required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	w := &Worker{
		client:    client,
		queueURL:  queueURL,
		turns:     turns,
		logger:    logger,
		workers:   defaultWorkerCount,
		waitSecs:  defaultWaitSeconds,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the receive loops. They run until ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}
	w.logger.Info("trace drain worker started", "workers", w.workers)
}

// Wait blocks until all receive loops have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: int32(w.batchSize),
			WaitTimeSeconds:     int32(w.waitSecs),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("trace receive failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range out.Messages {
			w.handle(ctx, aws.ToString(msg.Body))
			// Delete even on handling failure: a record that can't be
			// unmarshaled now won't unmarshal on redelivery either.
			if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(w.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				w.logger.Error("trace delete failed", "error", err)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, body string) {
	var envelope struct {
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		w.logger.Error("trace envelope unmarshal failed", "error", err)
		return
	}

	switch envelope.Kind {
	case "turn":
		var rec TurnRecord
		if err := json.Unmarshal(envelope.Payload, &rec); err != nil {
			w.logger.Error("turn record unmarshal failed", "error", err)
			return
		}
		if err := w.turns.Put(ctx, rec); err != nil {
			w.logger.Error("turn record store failed",
				"call_id", rec.CallID, "turn", rec.Turn, "error", err)
		}
	case "usage":
		var summary UsageSummary
		if err := json.Unmarshal(envelope.Payload, &summary); err != nil {
			w.logger.Error("usage summary unmarshal failed", "error", err)
			return
		}
		w.logger.Info("call usage recorded",
			"call_id", summary.CallID,
			"company_id", summary.CompanyID,
			"turns", summary.Turns,
			"input_tokens", summary.InputTokens,
			"output_tokens", summary.OutputTokens,
			"outcome", summary.Outcome,
		)
	default:
		w.logger.Warn("unknown trace envelope kind", "kind", envelope.Kind)
	}
}
