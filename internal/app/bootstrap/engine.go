package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/tradeline-ai-platform/internal/archive"
	"github.com/wolfman30/tradeline-ai-platform/internal/booking"
	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	appconfig "github.com/wolfman30/tradeline-ai-platform/internal/config"
	"github.com/wolfman30/tradeline-ai-platform/internal/crm"
	"github.com/wolfman30/tradeline-ai-platform/internal/engine"
	"github.com/wolfman30/tradeline-ai-platform/internal/knowledge"
	"github.com/wolfman30/tradeline-ai-platform/internal/llm"
	"github.com/wolfman30/tradeline-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/tradeline-ai-platform/internal/trace"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// BuildEngine assembles the turn engine from configuration. Redis is
// required; every other dependency degrades gracefully when unconfigured
// (no model means fallback-only decisions, no database means no
// bookings, no queue means no traces).
func BuildEngine(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, redisClient *redis.Client, pool *pgxpool.Pool, reg prometheus.Registerer, logger *logging.Logger) (*engine.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("bootstrap: redis is required for call state")
	}
	if logger == nil {
		logger = logging.Default()
	}
	_ = ctx

	contexts := callcontext.NewStore(redisClient, cfg.CallContextTTL, logger)
	configs := company.NewStore(redisClient)
	classifier := engine.NewClassifier(logger)

	var llmClient llm.Client
	var embedder llm.Embedder
	if cfg.BedrockModelID != "" {
		bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
		primary := llm.NewBedrockClient(bedrockClient)
		if cfg.BedrockFallbackModelID != "" {
			llmClient = llm.NewFallbackClient(primary, primary, logger.Logger).
				WithModelOverride(cfg.BedrockFallbackModelID)
		} else {
			llmClient = primary
		}
		if cfg.BedrockEmbeddingModelID != "" {
			embedder = llm.NewBedrockEmbeddingClient(bedrockClient)
		}
	} else {
		logger.Warn("no Bedrock model configured; decisions use the deterministic fallback only")
	}

	var semantic *knowledge.SemanticMatcher
	if embedder != nil {
		semantic = knowledge.NewSemanticMatcher(embedder, cfg.BedrockEmbeddingModelID, logger)
	}
	var synthesizer *knowledge.Synthesizer
	var reshaper *knowledge.Reshaper
	if llmClient != nil {
		synthesizer = knowledge.NewSynthesizer(llmClient, cfg.BedrockModelID)
		reshaper = knowledge.NewReshaper(llmClient, cfg.BedrockModelID, logger)
	}
	resolver := knowledge.NewResolver(semantic, synthesizer, reshaper, cfg.KnowledgeTierTimeout, logger)

	opts := []engine.EngineOption{
		engine.WithResolver(resolver),
		engine.WithLLMTimeout(cfg.LLMTimeout),
		engine.WithMetrics(metrics.NewEngineMetrics(reg)),
	}

	if pool != nil {
		repo := crm.NewRepository(pool)
		opts = append(opts, engine.WithMaterializer(booking.NewMaterializer(repo, logger)))
	} else {
		logger.Warn("no database configured; booking materialization disabled")
	}

	if cfg.TraceQueueURL != "" {
		sqsClient := sqs.NewFromConfig(awsCfg)
		opts = append(opts, engine.WithRecorder(trace.NewRecorder(sqsClient, cfg.TraceQueueURL, logger)))
	}

	if cfg.ArchiveBucket != "" {
		s3Client := s3.NewFromConfig(awsCfg)
		opts = append(opts, engine.WithArchive(archive.NewStore(s3Client, cfg.ArchiveBucket, logger.Logger)))
	}

	return engine.NewEngine(contexts, configs, classifier, llmClient, cfg.BedrockModelID, logger, opts...), nil
}
