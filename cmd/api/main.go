package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"negaboku/internal/config"
	"negaboku/internal/db"
	apihttp "negaboku/internal/http"
	"negaboku/internal/repository"
	"negaboku/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := db.Ping(ctxPing, pool); err != nil {
			logger.Fatal("db ping failed", zap.Error(err))
		}
		cancel()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			if cfg.RelationshipStore == config.StoreRedis {
				logger.Fatal("redis ping failed", zap.Error(err))
			}
			logger.Warn("redis ping failed, event publishing disabled", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	var relRepo repository.RelationshipRepository
	switch cfg.RelationshipStore {
	case config.StorePostgres:
		relRepo = repository.NewPgRelationshipRepository(pool)
	case config.StoreRedis:
		relRepo = repository.NewRedisRelationshipRepository(redisClient)
	default:
		relRepo = repository.NewMemoryRelationshipRepository()
	}

	var eventRepo repository.EventRepository
	switch cfg.EventStore {
	case config.StorePostgres:
		eventRepo = repository.NewPgEventRepository(pool)
	case config.StoreMongo:
		mongoDB, err := db.NewMongoDatabase(ctx, cfg)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer db.CloseMongo(mongoDB)
		mongoRepo := repository.NewMongoEventRepository(mongoDB)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo indexes", zap.Error(err))
		}
		eventRepo = mongoRepo
	}

	sinks := service.MultiEventSink{
		service.NewLoggingEventSink(logger),
		service.NewMetricsEventSink(prometheus.DefaultRegisterer),
	}
	if eventRepo != nil {
		sinks = append(sinks, service.NewEventStoreSink(eventRepo))
	}
	if redisClient != nil {
		sinks = append(sinks, service.NewRedisEventPublisher(redisClient, cfg.RedisEventsChannel))
	}

	relSvc := service.NewRelationshipService(relRepo, sinks, logger)
	if eventRepo != nil {
		relSvc.WithEventHistory(eventRepo)
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if !jwtSvc.Enabled() {
		logger.Warn("jwt secret not configured, mutating routes are open")
	}

	limiter := service.NewRedisMutationRateLimiter(
		redisClient,
		time.Duration(cfg.MutationRateWindowSeconds)*time.Second,
		cfg.MutationRateLimit,
	)
	if cfg.MutationRateLimit > 0 && limiter == nil {
		logger.Warn("mutation rate limit requires redis, limiter disabled")
	}

	relHandler := apihttp.NewRelationshipHandler(logger, relSvc)
	router := apihttp.NewRouter(logger, prometheus.DefaultGatherer, relHandler, jwtSvc, limiter, cfg.JWTMutationRoles...)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("relationship_store", cfg.RelationshipStore),
		zap.String("event_store", cfg.EventStore),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
