package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/tradeline-ai-platform/cmd/mainconfig"
	appconfig "github.com/wolfman30/tradeline-ai-platform/internal/config"
	"github.com/wolfman30/tradeline-ai-platform/internal/trace"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.TraceQueueURL == "" {
		logger.Error("trace worker requires TRACE_QUEUE_URL")
		os.Exit(1)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsConfig)
	dynamoClient := dynamodb.NewFromConfig(awsConfig)
	turnStore := trace.NewTurnStore(dynamoClient, cfg.TurnRecordTable, logger)

	worker := trace.NewWorker(
		sqsClient,
		cfg.TraceQueueURL,
		turnStore,
		logger,
		trace.WithWorkerCount(4),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down trace worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("trace worker stopped")
	case <-doneCtx.Done():
		logger.Error("trace worker shutdown timed out", "error", doneCtx.Err())
	}
}
