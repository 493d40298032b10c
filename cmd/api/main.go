package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/edrive/ride-hailing/internal/api/handlers"
	"github.com/edrive/ride-hailing/internal/api/routes"
	"github.com/edrive/ride-hailing/internal/auth"
	"github.com/edrive/ride-hailing/internal/config"
	"github.com/edrive/ride-hailing/internal/events"
	"github.com/edrive/ride-hailing/internal/service/chat"
	"github.com/edrive/ride-hailing/internal/service/earnings"
	"github.com/edrive/ride-hailing/internal/service/matching"
	"github.com/edrive/ride-hailing/internal/service/notification"
	"github.com/edrive/ride-hailing/internal/service/onboarding"
	"github.com/edrive/ride-hailing/internal/service/places"
	"github.com/edrive/ride-hailing/internal/service/presence"
	"github.com/edrive/ride-hailing/internal/service/review"
	"github.com/edrive/ride-hailing/internal/service/support"
	"github.com/edrive/ride-hailing/pkg/cache"
	"github.com/edrive/ride-hailing/pkg/database"
	"github.com/edrive/ride-hailing/pkg/eventlog"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/monitoring"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/push"
	"github.com/edrive/ride-hailing/pkg/queue"
	"github.com/edrive/ride-hailing/pkg/retry"
	"github.com/edrive/ride-hailing/pkg/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting eDrive dispatch API",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("store", cfg.Store.Driver),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully", logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		postgresDB  *sql.DB
		redisClient *redis.Client
	)
	if cfg.Store.Driver == "postgres" {
		postgresDB, redisClient = connectInfrastructure(ctx, cfg, appLogger)
		defer postgresDB.Close()
		defer cache.Close(redisClient)
		go reportRedisStats(ctx, redisClient, nrApp)
	}

	st, err := newStores(cfg, postgresDB, redisClient, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize stores", logger.Err(err))
	}

	broker := pubsub.NewBroker(appLogger.Named("pubsub"),
		pubsub.WithBufferSize(cfg.Stream.BufferSize),
		pubsub.WithDropHook(metrics.DropHook),
	)

	// Lifecycle records go to Kafka when enabled
	var sink events.Sink = events.NopSink{}
	if cfg.Kafka.Enabled {
		writer := eventlog.NewWriter(eventlog.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer writer.Close()
		sink = events.KafkaSink{Writer: writer}
		appLogger.Info("Lifecycle events published to Kafka", logger.String("topic", cfg.Kafka.Topic))
	}

	var pusher push.Pusher = push.Nop{}
	if cfg.Push.Enabled {
		fcm, err := push.NewFCM(ctx, cfg.Push.CredentialsFile)
		if err != nil {
			appLogger.Fatal("Failed to initialize Firebase messaging", logger.Err(err))
		}
		pusher = fcm
	}

	// Push jobs go through RabbitMQ when enabled, otherwise they are sent inline
	var jobs notification.Enqueuer
	if cfg.RabbitMQ.Enabled {
		mq, err := queue.Dial(queue.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
			Prefetch: cfg.RabbitMQ.Prefetch,
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to RabbitMQ", logger.Err(err))
		}
		defer mq.Close()
		jobs = mq
	}

	dispatcher := notification.NewDispatcher(st.Notifications, st.Devices, broker, pusher, jobs, appLogger, notification.Config{
		Workers:    cfg.Notification.Workers,
		QueueSize:  cfg.Notification.QueueSize,
		Timeout:    cfg.Notification.Timeout,
		StoreRetry: retry.Default,
	})
	dispatcher.Start()
	defer dispatcher.Stop()

	var verifier onboarding.DocumentVerifier
	if cfg.Verification.APIKey != "" {
		gemini, err := onboarding.NewGeminiVerifier(ctx, onboarding.GeminiConfig{
			APIKey:  cfg.Verification.APIKey,
			Model:   cfg.Verification.Model,
			BaseURL: cfg.Verification.BaseURL,
			Timeout: cfg.Verification.Timeout,
		})
		if err != nil {
			appLogger.Fatal("Failed to create document verifier", logger.Err(err))
		}
		verifier = gemini
	} else {
		appLogger.Warn("No document verifier configured, every onboarding goes to manual review")
	}

	acceptPolicy := retry.Policy{
		Attempts: cfg.Matching.AcceptAttempts,
		Delay:    cfg.Matching.AcceptBackoff,
		MaxDelay: 20 * cfg.Matching.AcceptBackoff,
	}
	services := handlers.Services{
		Matching: matching.NewService(matching.Deps{
			Rides:       st.Rides,
			Offers:      st.Offers,
			Drivers:     st.Drivers,
			Safety:      st.Safety,
			Broker:      broker,
			Notifier:    dispatcher,
			Sink:        sink,
			Idempotency: st.Idempotency,
			NewRelic:    nrApp,
			Logger:      appLogger,
		}, matching.Config{AcceptRetry: acceptPolicy, ReadRetry: retry.Default}),
		Earnings:      earnings.NewService(st.Rides, earnings.Config{}),
		Notifications: notification.NewService(st.Notifications, st.Devices, broker),
		Presence:      presence.NewFeed(st.Rides, st.Presence, broker, nrApp),
		Chat:          chat.NewRelay(st.Rides, st.Messages, st.Safety, broker, dispatcher, appLogger),
		Reviews:       review.NewService(st.Rides, st.Reviews, dispatcher),
		Onboarding:    onboarding.NewService(st.Drivers, verifier, dispatcher, appLogger),
		Support:       support.NewService(st.Complaints, dispatcher, appLogger),
		Places:        places.NewService(st.Places, appLogger),
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(&handlers.TopicResolver{
		Matching:      services.Matching,
		Presence:      services.Presence,
		Chat:          services.Chat,
		Notifications: services.Notifications,
	}, appLogger)
	go wsHub.Run(ctx)

	h := handlers.NewHandlers(services, wsHub, appLogger)
	if cfg.WebSocket.HeartbeatInterval > 0 {
		h.Heartbeat = cfg.WebSocket.HeartbeatInterval
	}

	// Initialize Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	routes.SetupRoutes(router, h, tokens, nrApp.Application, cfg)

	appLogger.Info("Routes configured successfully")

	// Streams stay open, so there is no write timeout
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}

func connectInfrastructure(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*sql.DB, *redis.Client) {
	redisClient, err := cache.NewRedisClient(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	appLogger.Info("Connected to Redis successfully")

	postgresDB, err := database.NewPostgresDB(database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.Name,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConnections,
		MaxIdle:     cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	appLogger.Info("Connected to PostgreSQL successfully")

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, postgresDB); err != nil {
			appLogger.Fatal("Failed to apply migrations", logger.Err(err))
		}
		appLogger.Info("Database migrations applied")
	}
	return postgresDB, redisClient
}

func reportRedisStats(ctx context.Context, client *redis.Client, nrApp *monitoring.NewRelicApp) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nrApp.RecordRedisPoolStats(cache.GetClientStats(client))
		}
	}
}
