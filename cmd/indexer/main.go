package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Shopify/sarama"
	"github.com/redis/go-redis/v9"

	"github.com/docgate/docgate/internal/breaker"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	docrepo "github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/jobs"
	"github.com/docgate/docgate/internal/queue"
	"github.com/docgate/docgate/internal/search"
	"github.com/docgate/docgate/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.LogLevel, cfg.Server.Environment, "docgate-indexer"); err != nil {
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
	deadLetters := jobs.NewDeadLetterStore(db)
	if err := docRepo.Migrate(); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	if err := deadLetters.Migrate(); err != nil {
		logger.Fatalf("migrate: %v", err)
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

	indexer := jobs.NewIndexer(docRepo, engine, brk, cache)
	dispatcher, err := jobs.NewDispatcher(indexer, deadLetters, jobs.Options{
		PoolSize:    cfg.Jobs.PoolSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		BaseBackoff: cfg.Jobs.BaseBackoff,
	})
	if err != nil {
		logger.Fatalf("job pool: %v", err)
	}

	if err := queue.EnsureTopics(cfg.Kafka.Brokers, cfg.Kafka.Partitions, cfg.Kafka.TopicIndex, cfg.Kafka.TopicDelete); err != nil {
		logger.Warnf("kafka: ensure topics: %v", err)
	}
	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, queue.NewConsumerConfig())
	if err != nil {
		logger.Fatalf("kafka: consumer group: %v", err)
	}

	consumer := queue.NewConsumer(cfg.Kafka.TopicIndex, cfg.Kafka.TopicDelete, dispatcher)
	logger.Infof("indexer consuming %s, %s as group %s", cfg.Kafka.TopicIndex, cfg.Kafka.TopicDelete, cfg.Kafka.ConsumerGroup)
	consumer.Run(ctx, group)

	logger.Infof("shutting down, draining jobs")
	if err := group.Close(); err != nil {
		logger.Errorf("consumer group close: %v", err)
	}
	dispatcher.Close()
}
