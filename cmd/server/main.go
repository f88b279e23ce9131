package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"tickerpulse/internal/cache"
	"tickerpulse/internal/config"
	"tickerpulse/internal/db"
	"tickerpulse/internal/domain"
	"tickerpulse/internal/embedding"
	"tickerpulse/internal/handler"
	"tickerpulse/internal/job"
	"tickerpulse/internal/linker"
	"tickerpulse/internal/novelty"
	"tickerpulse/internal/pipeline"
	"tickerpulse/internal/repository"
	"tickerpulse/internal/sentiment"
	"tickerpulse/internal/signal"
	"tickerpulse/internal/velocity"
	"tickerpulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "tickerpulse/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           TickerPulse API
// @version         1.0
// @description     Financial-text signal measurement service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "tickerpulse").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	// Repositories
	documentRepo := repository.NewDocumentRepository(db.Pool, tracer)
	signalRepo := repository.NewSignalRepository(db.Pool, tracer)
	instrumentRepo := repository.NewInstrumentRepository(db.Pool, tracer)
	stateRepo := repository.NewStateRepository(db.Pool, tracer)

	// Instrument universe and ticker linker
	var universe []domain.Instrument
	if db.Pool != nil {
		universe, err = instrumentRepo.ListInstruments(ctx)
		if err != nil {
			log.Fatalf("failed to load instrument universe: %v", err)
		}
	}
	if len(universe) == 0 {
		logger.Warn().Msg("instrument universe is empty, linker will emit no links")
	}
	tickerLinker := linker.New(universe, cfg.AmbiguousSymbols)

	// Sentiment: primary classifier with deterministic lexicon fallback
	var classifier sentiment.Classifier
	if c := sentiment.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel); c != nil {
		classifier = c
	}
	if cfg.UseGPU {
		logger.Warn().Msg("SENTIMENT_USE_GPU is set but the remote classifier manages its own hardware, ignoring")
	}
	sentimentScorer := sentiment.NewHybridScorer(classifier, tracer, logger, sentiment.Config{
		BatchSize:       cfg.SentimentBatch,
		Timeout:         cfg.SentimentTimeout,
		FallbackEnabled: cfg.FallbackEnabled,
	})

	// Embeddings: remote model when configured, hashing fallback otherwise
	var embedder embedding.Embedder = embedding.NewHashingEmbedder(0)
	if cfg.OpenAIAPIKey != "" {
		embedder = embedding.NewHybrid(
			embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel),
			embedder,
			logger,
		)
	}

	// Rolling state, warmed from persisted snapshots when available
	noveltyScorer := novelty.NewScorer(cfg.NoveltyWindow)
	velocityScorer := velocity.NewScorer(cfg.VelocityBaseline, cfg.VelocityBucket)
	if db.Pool != nil {
		now := time.Now().UTC()
		if entries, err := stateRepo.LoadEmbeddingEntries(ctx, now.Add(-cfg.NoveltyWindow)); err != nil {
			logger.Warn().Err(err).Msg("could not load embedding snapshot")
		} else {
			noveltyScorer.Restore(entries)
		}
		if counts, err := stateRepo.LoadMentionCounts(ctx, now.Add(-cfg.VelocityBaseline)); err != nil {
			logger.Warn().Err(err).Msg("could not load mention count snapshot")
		} else {
			velocityScorer.Restore(counts)
		}
	}

	// Pipeline
	var signalCache *cache.SignalCache
	if cache.Client != nil {
		signalCache = cache.NewSignalCache(cache.Client)
	}
	var store pipeline.ResultStore
	var cacheSink pipeline.SignalCache
	if db.Pool != nil {
		store = signalRepo
	}
	if signalCache != nil {
		cacheSink = signalCache
	}
	pipelineService := pipeline.NewService(
		tracer,
		logger,
		tickerLinker,
		sentimentScorer,
		embedder,
		noveltyScorer,
		velocityScorer,
		store,
		cacheSink,
		pipeline.Config{
			Workers: cfg.PipelineWorkers,
			Weights: signal.Weights{
				Sentiment: cfg.WeightSentiment,
				Novelty:   cfg.WeightNovelty,
				Velocity:  cfg.WeightVelocity,
				TagBoosts: cfg.TagBoosts,
			},
		},
	)

	var runner *pipeline.Runner
	if db.Pool != nil {
		runner = pipeline.NewRunner(logger, pipelineService, documentRepo, cfg.InboxBatchLimit)

		pipelineJob := job.NewPipelineJob(tracer, logger, runner, time.Duration(cfg.PipelinePollSecs)*time.Second)
		go pipelineJob.Start(ctx)

		snapshotJob := job.NewSnapshotJob(tracer, logger, noveltyScorer, velocityScorer, stateRepo, 5*time.Minute)
		go snapshotJob.Start(ctx)

		pruneJob := job.NewPruneJob(tracer, logger, noveltyScorer, velocityScorer, stateRepo, cfg.NoveltyWindow, cfg.VelocityBaseline, time.Hour)
		go pruneJob.Start(ctx)
	}

	// HTTP surface
	var runnerIface handler.PipelineRunner
	if runner != nil {
		runnerIface = runner
	}
	var cacheIface handler.LatestSignalCache
	if signalCache != nil {
		cacheIface = signalCache
	}
	h := handler.New(tracer, runnerIface, documentRepo, signalRepo, cacheIface)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("tickerpulse"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info().Msg("server exiting")
}
