/**
 * @description
 * This is the main entry point for the storefront-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, message brokers, repositories, the core application service, and
 * the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/api"
	"github.com/instaboost/storefront-service/internal/app"
	"github.com/instaboost/storefront-service/internal/config"
	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
	rmrabbit "github.com/instaboost/storefront-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"session secret must be configured\" env=SESSION_SECRET")
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting storefront-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the data access layer (repository) and bootstrap the schema.
	repository := store.NewPostgresRepository(dbpool)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := repository.EnsureSchema(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema bootstrap failed\" err=%v", err)
	}
	if err := repository.SeedDefaultServices(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"catalog seeding failed\" err=%v", err)
	}

	// Initialize the RabbitMQ producer to publish operator events.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	var redisClient *redis.Client
	rateLimitingEnabled := cfg.OrderRateLimitPerMinute > 0 || cfg.ClaimRateLimitPerMinute > 0
	if rateLimitingEnabled {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	signupBonus, err := decimal.NewFromString(cfg.SignupBonus)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid signup bonus\" value=%q err=%v", cfg.SignupBonus, err)
	}

	// Initialize the core application service with its dependencies.
	storefrontService := app.NewService(repository, producer, app.Settings{
		SignupBonus:       signupBonus,
		ReferralThreshold: cfg.ReferralThreshold,
		DiscountPercent:   cfg.DiscountPercent,
		OrderRateLimit:    cfg.OrderRateLimitPerMinute,
		OrderRateWindow:   time.Minute,
		ClaimRateLimit:    cfg.ClaimRateLimitPerMinute,
		ClaimRateWindow:   time.Minute,
	})
	if redisClient != nil {
		storefrontService.SetRateLimiter(app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix))
	}

	// Wire up the operator decision consumer; decisions arrive asynchronously
	// on the storefront exchange.
	decisionConsumer := app.NewOperatorDecisionConsumer(storefrontService)
	rabbitConsumer, err := rmrabbit.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; operator decisions limited to http\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()
		decisionBindings := map[string]func([]byte) bool{
			domain.DecisionApprovedKey: decisionConsumer.HandleApproved,
			domain.DecisionRejectedKey: decisionConsumer.HandleRejected,
		}
		if err := rabbitConsumer.ConsumeWithBindings(rmrabbit.StorefrontExchange, cfg.OperatorDecisionQueue, decisionBindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"decision consumer start failed\" err=%v", err)
		}
		log.Println("level=info component=bootstrap msg=\"operator decision consumer started\"")
	}

	// Initialize the API handlers and router.
	handlers := api.NewStorefrontHandlers(storefrontService, cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	router := api.StorefrontRoutes(handlers, cfg.CORSAllowedOrigins, cfg.SessionSecret, cfg.InternalAPIKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
