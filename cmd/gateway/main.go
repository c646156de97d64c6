package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/docgate/docgate/handlers"
	"github.com/docgate/docgate/internal/breaker"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	docrepo "github.com/docgate/docgate/internal/document/repository"
	docservice "github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/internal/jobs"
	"github.com/docgate/docgate/internal/queue"
	"github.com/docgate/docgate/internal/ratelimit"
	"github.com/docgate/docgate/internal/search"
	"github.com/docgate/docgate/internal/tenant"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.LogLevel, cfg.Server.Environment, "docgate-gateway"); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	docRepo := docrepo.NewGormRepo(db)
	tenantRepo := tenant.NewRepository(db)
	deadLetters := jobs.NewDeadLetterStore(db)
	for _, m := range []func() error{docRepo.Migrate, tenantRepo.Migrate, deadLetters.Migrate} {
		if err := m(); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis: %v", err)
	}

	engine, err := search.NewEngine(cfg.Search.Engine, cfg.Search.IndexPath)
	if err != nil {
		logger.Fatalf("search engine: %v", err)
	}
	defer func() { _ = engine.Close() }()

	brk := breaker.New("search-engine", rdb, breaker.Settings{
		CallTimeout:     cfg.Breaker.CallTimeout,
		SleepWindow:     cfg.Breaker.SleepWindow,
		RollingWindow:   cfg.Breaker.RollingWindow,
		VolumeThreshold: cfg.Breaker.VolumeThreshold,
		ErrorThreshold:  cfg.Breaker.ErrorThreshold,
	})
	cache := search.NewCache(rdb, "", cfg.Search.CacheTTL)
	limiter := ratelimit.NewLimiter(rdb)

	// local job path: serves as the publish fallback when Kafka is down
	indexer := jobs.NewIndexer(docRepo, engine, brk, cache)
	dispatcher, err := jobs.NewDispatcher(indexer, deadLetters, jobs.Options{
		PoolSize:    cfg.Jobs.PoolSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		BaseBackoff: cfg.Jobs.BaseBackoff,
	})
	if err != nil {
		logger.Fatalf("job pool: %v", err)
	}
	defer dispatcher.Close()

	producer := buildProducer(cfg, dispatcher)
	defer func() { _ = producer.Close() }()
	intents := queue.NewIntents(producer, cfg.Kafka.TopicIndex, cfg.Kafka.TopicDelete)

	recorder := buildRecorder(ctx, cfg)
	gateway := search.NewGateway(engine, cache, docRepo, brk, recorder)

	tenants := tenant.NewService(tenantRepo, docRepo, intents, limiter, cache)
	documents := docservice.New(docRepo, intents)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	handlers.RegisterHealthRoutes(r,
		handlers.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		handlers.ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return pingGorm(ctx, db) }},
	)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.RegisterSwagger(r)
	handlers.RegisterTenantRoutes(r, tenants, cfg.Admin.Token)
	handlers.RegisterAuthRoutes(r, tenants, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	authed := r.Group("/api/v1", middleware.TenantAuth(tenants, cfg.JWT.Secret))
	if cfg.RateLimit.Enabled {
		authed.Use(middleware.TenantRateLimit(limiter))
	} else {
		authed.Use(middleware.MemoryRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	handlers.RegisterDocumentRoutes(authed, documents)
	handlers.RegisterSearchRoutes(authed, gateway)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("gateway listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// buildProducer connects to Kafka; when the broker is unreachable it returns
// a producer that routes everything through the local dispatcher fallback.
func buildProducer(cfg *config.Config, dispatcher *jobs.Dispatcher) *queue.Producer {
	var sp sarama.SyncProducer
	if len(cfg.Kafka.Brokers) > 0 {
		if err := queue.EnsureTopics(cfg.Kafka.Brokers, cfg.Kafka.Partitions, cfg.Kafka.TopicIndex, cfg.Kafka.TopicDelete); err != nil {
			logger.Warnf("kafka: ensure topics: %v", err)
		}
		var err error
		sp, err = sarama.NewSyncProducer(cfg.Kafka.Brokers, queue.NewProducerConfig())
		if err != nil {
			logger.Warnf("kafka: connect failed, running with local fallback: %v", err)
			sp = nil
		}
	} else {
		logger.Warnf("kafka: no brokers configured, running with local fallback")
	}

	producer := queue.NewProducer(sp, "docgate-gateway")
	producer.RegisterFallback(cfg.Kafka.TopicIndex, func(ctx context.Context, msg queue.IndexMessage) {
		dispatcher.EnqueueIndex(ctx, msg.DocumentID, msg.TenantID)
	})
	producer.RegisterFallback(cfg.Kafka.TopicDelete, func(ctx context.Context, msg queue.IndexMessage) {
		dispatcher.EnqueueDelete(ctx, msg.DocumentID, msg.TenantID)
	})
	return producer
}

// buildRecorder wires the Mongo analytics sink when configured.
func buildRecorder(ctx context.Context, cfg *config.Config) search.Recorder {
	if cfg.Mongo.URI == "" {
		return search.NopRecorder{}
	}
	client, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		logger.Warnf("mongo: analytics disabled: %v", err)
		return search.NopRecorder{}
	}
	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	return search.NewDispatcher(search.NewMongoSink(coll, cfg.Mongo.Timeout), 256)
}

func pingGorm(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
