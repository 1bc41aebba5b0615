// Package main is the entry point for the Rank Lab API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ranklab/ranklab/internal/api"
	"github.com/ranklab/ranklab/internal/auth"
	"github.com/ranklab/ranklab/internal/config"
	"github.com/ranklab/ranklab/internal/embedding"
	"github.com/ranklab/ranklab/internal/engagement"
	"github.com/ranklab/ranklab/internal/health"
	"github.com/ranklab/ranklab/internal/learning"
	"github.com/ranklab/ranklab/internal/middleware"
	"github.com/ranklab/ranklab/internal/post"
	"github.com/ranklab/ranklab/internal/ranker"
	"github.com/ranklab/ranklab/internal/recommend"
	"github.com/ranklab/ranklab/internal/scoring"
	"github.com/ranklab/ranklab/internal/social"
	"github.com/ranklab/ranklab/internal/tracing"
)

const serviceName = "ranklab"

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Rank Lab API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	// Tracing is opt-in: enabled when an OTLP endpoint is configured.
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      otlpEndpoint != "",
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: otlpEndpoint,
		SamplingRate: 0.1,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancelPing()

	// Repositories
	embeddings := embedding.NewPostgresStore(db, logger)
	posts := post.NewPostgresRepository(db, logger)
	graph := social.NewPostgresGraph(db, logger)
	engagements := engagement.NewPostgresRepository(db, logger)
	weights := scoring.NewPostgresWeightRepository(db, logger)

	// Model service client: batched ranking and base-vector projection.
	sourceTimeout := time.Duration(cfg.SourceTimeoutMS) * time.Millisecond
	model := ranker.NewServiceClient(cfg.ModelServiceURL, sourceTimeout)

	// Text encoder for pretrained post embeddings.
	encoder := ranker.NewOpenAIEncoder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "")

	embeddingService := embedding.NewService(embeddings, posts, encoder, model, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}
	recMetrics := recommend.NewMetrics()
	if err := recMetrics.Register(registry); err != nil {
		logger.Error("failed to register pipeline metrics", "error", err)
		os.Exit(1)
	}
	learnMetrics := learning.NewMetrics()
	if err := learnMetrics.Register(registry); err != nil {
		logger.Error("failed to register learning metrics", "error", err)
		os.Exit(1)
	}

	learner := learning.NewLearner(embeddings, logger).WithMetrics(learnMetrics)

	pipeline := recommend.NewPipeline(embeddings, posts, graph, model, weights, logger, recMetrics, recommend.Config{
		InNetworkCap:  cfg.InNetworkCap,
		OONWorkingSet: cfg.OONWorkingSet,
		OONTopN:       cfg.OONTopN,
		MaxAge:        time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		SourceTimeout: sourceTimeout,
	})

	// Engagement stream publisher (optional)
	var publisher engagement.Publisher = engagement.NopPublisher{}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafkaPublisher := engagement.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error("failed to close kafka publisher", "error", err)
			}
		}()
		publisher = kafkaPublisher
		logger.Info("engagement stream enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Rate limit store: Redis when configured, in-memory otherwise.
	var rateLimitStore middleware.RateLimitStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).
			WithMetrics(httpMetrics).
			WithLogger(logger)
		logger.Info("redis rate limit store enabled")
	} else {
		inMemory := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				inMemory.Cleanup()
			}
		}()
		rateLimitStore = inMemory
	}

	// Auth
	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, os.Getenv("JWT_SECRET_PREVIOUS"))

	// Handlers
	recommendHandlers := api.NewRecommendHandlers(pipeline)
	engagementHandlers := api.NewEngagementHandlers(engagements, publisher, learner)
	embeddingHandlers := api.NewEmbeddingHandlers(embeddingService).WithDefaultBatch(cfg.BackfillBatch)
	weightHandlers := api.NewWeightHandlers(weights)

	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(db),
		ModelChecker:   health.NewModelChecker(cfg.ModelServiceURL),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	requireAuth := api.RequireAuth(jwtService)
	recommendLimit := middleware.RateLimiter(rateLimitStore, middleware.DefaultRecommendLimit(), middleware.UserKeyFunc(), httpMetrics)
	engageLimit := middleware.RateLimiter(rateLimitStore, middleware.DefaultEngageLimit(), middleware.UserKeyFunc(), httpMetrics)

	mux := newRouter(routerConfig{
		recommend:      recommendHandlers,
		engagements:    engagementHandlers,
		embeddings:     embeddingHandlers,
		weights:        weightHandlers,
		health:         healthHandlers,
		metricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		recommendLimit: recommendLimit,
		engageLimit:    engageLimit,
		requireAuth:    requireAuth,
	})

	handler := chainMiddleware(mux, logger, httpMetrics)

	if origins := cfg.CORSOriginList(); len(origins) > 0 {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   origins,
			AllowCredentials: true,
		})(handler)
	}

	// pprof is development-only; never expose it in production.
	if cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// routerConfig carries the handlers and route-scoped wrappers the server
// mounts. Tests build one over in-memory fakes.
type routerConfig struct {
	recommend      *api.RecommendHandlers
	engagements    *api.EngagementHandlers
	embeddings     *api.EmbeddingHandlers
	weights        *api.WeightHandlers
	health         *api.HealthHandlers
	metricsHandler http.Handler
	recommendLimit func(http.Handler) http.Handler
	engageLimit    func(http.Handler) http.Handler
	requireAuth    func(http.Handler) http.Handler
}

func newRouter(rc routerConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/v1/recommendations/", rc.recommendLimit(http.HandlerFunc(rc.recommend.GetRecommendations)))
	mux.Handle("/v1/engagements", rc.requireAuth(rc.engageLimit(http.HandlerFunc(rc.engagements.CreateEngagement))))
	mux.Handle("/v1/users/", http.HandlerFunc(rc.engagements.ListEngagements))
	mux.Handle("/v1/posts/", http.HandlerFunc(rc.embeddings.ComputeEmbedding))
	mux.Handle("/v1/embeddings/backfill", http.HandlerFunc(rc.embeddings.Backfill))
	mux.Handle("/v1/weights", http.HandlerFunc(rc.weights.HandleWeights))
	mux.HandleFunc("/health", rc.health.Health)
	mux.HandleFunc("/ready", rc.health.Ready)
	mux.Handle("/metrics", rc.metricsHandler)
	mux.HandleFunc("/", rootHandler)
	return mux
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
		api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"service":"ranklab-api","version":"0.0.1"}`)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// chainMiddleware applies the standard stack around the router:
// RequestID -> Logging -> Tracing -> HTTPMetrics.
func chainMiddleware(mux http.Handler, logger *slog.Logger, m *middleware.Metrics) http.Handler {
	return middleware.RequestID(
		middleware.Logging(logger)(
			middleware.Tracing(serviceName)(
				middleware.HTTPMetrics(m)(mux))))
}
