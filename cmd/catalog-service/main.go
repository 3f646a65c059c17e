package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"ms-catalog/internal/auth"
	"ms-catalog/internal/catalog/catalog_api"
	"ms-catalog/internal/catalog/db"
	catalogredis "ms-catalog/internal/catalog/redis"
	"ms-catalog/internal/catalog/rpc"
	"ms-catalog/internal/catalog/service"
	"ms-catalog/internal/config"
	"ms-catalog/internal/database/migrations"
	"ms-catalog/internal/kafka"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/observability"
	"ms-catalog/internal/sse"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: cfg.Observability.ServiceName, Dir: cfg.Log.Dir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	log.Info("APP", "Starting Catalog Service initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability)
	if err != nil {
		log.Warn("OTEL", fmt.Sprintf("Tracing setup failed, continuing without export: %v", err))
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("OTEL", fmt.Sprintf("Tracer shutdown: %v", err))
			}
		}()
	}

	bunDB := connectDB(ctx, cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database.DSN, log); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}
	catalog := db.New(bunDB)

	deps := service.Deps{Topics: cfg.Kafka.Topics}
	seatEmitter := sse.NewSeatEmitter()
	publishers := service.Publishers{seatEmitter}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, category names rely on the unique index: %v", cfg.Redis.Addr, err))
		} else {
			log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
		}
		deps.Locker = catalogredis.NewNameLock(redisClient, cfg.Redis.LockTTL, log)
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publishers = append(publishers, producer)
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))

		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopicsExist(topicCtx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		cancel()
	}

	deps.Publisher = publishers

	eventService := service.NewEventService(catalog, log, deps)
	categoryService := service.NewCategoryService(catalog, log, deps)
	ledger := service.NewSeatLedger(catalog, log, cfg.Ledger, deps)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewBookingConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topics.BookingRequested,
			cfg.Kafka.GroupID,
			cfg.Kafka.Topics.BookingProcessed,
			ledger,
			producer,
			log,
		)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Booking consumer stopped: %v", err))
			}
		}()
	}

	handler := catalog_api.NewHandler(eventService, categoryService, ledger, log)
	handler.Seats = seatEmitter

	var protect func(http.Handler) http.Handler
	if cfg.Auth.OIDCIssuer != "" {
		verify, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
		protect = auth.Middleware(verify, log)
		log.Info("AUTH", "OIDC middleware applied to mutating routes")
	} else {
		log.Warn("AUTH", "OIDC_ISSUER not set, mutating routes are unauthenticated")
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(catalog_api.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/health", handler.Health)
	handler.RegisterRoutes(r, protect)
	log.Info("ROUTER", "Catalog routes registered under /api/category and /api/events")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      otelhttp.NewHandler(r, "catalog-http"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Catalog Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpc.NewServer()
		rpc.NewServer(eventService, ledger, log).Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPC.Port)
		if err != nil {
			log.Fatal("GRPC", fmt.Sprintf("Failed to listen on %s: %v", cfg.GRPC.Port, err))
		}
		go func() {
			log.Info("GRPC", fmt.Sprintf("BookingHandler listening on %s", cfg.GRPC.Port))
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("GRPC", fmt.Sprintf("gRPC server error: %v", err))
			}
		}()
	}

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Catalog Service shutdown complete")
	}
}

// connectDB opens the PostgreSQL pool, retrying the first ping with
// exponential backoff.
func connectDB(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.ConnectRetries)),
		ctx,
	)
	err = backoff.Retry(func() error {
		attempt++
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", attempt, cfg.ConnectRetries+1))
		if err := sqldb.PingContext(ctx); err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
			return err
		}
		return nil
	}, policy)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", attempt, err))
	}

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

// runMigrations uses its own connection; the migrate driver closes it.
func runMigrations(dsn string, log *logger.Logger) error {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	runner := migrations.NewRunner(sqldb, log)
	defer runner.Close()
	return runner.MigrateUp()
}
