package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirsalarsafaei/sqlc-pgx-monitoring/dbtracer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lucasgoveia/paymentgateway/config"
	"github.com/lucasgoveia/paymentgateway/internal/health"
	"github.com/lucasgoveia/paymentgateway/internal/payments"
	"github.com/lucasgoveia/paymentgateway/internal/payments/handlers"
	"github.com/lucasgoveia/paymentgateway/internal/queue"
	"github.com/lucasgoveia/paymentgateway/internal/summarycoord"
	"github.com/lucasgoveia/paymentgateway/internal/workerpool"
	"github.com/lucasgoveia/paymentgateway/internal/writebuffer"
)

func main() {
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := setupLogger(appConfig)

	if appConfig.Telemetry.Enabled {
		cleanup := config.InitTracer(appConfig.Telemetry)
		defer cleanup()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool := setupDbPool(ctx, appConfig)
	defer dbpool.Close()

	store := payments.NewStore(dbpool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient := setupRedisClient(appConfig, logger)
	defer redisClient.Close()

	dispatchClient := setupDispatchClient(appConfig)

	healthMonitor := health.NewMonitor(
		dispatchClient,
		redisClient,
		logger,
		appConfig.Service.DefaultURL,
		appConfig.Service.FallbackURL,
		appConfig.Health.ProbeInterval,
		appConfig.Health.ProbeTimeout,
	)
	go healthMonitor.Run(ctx)

	dispatcher := payments.NewDispatcher(dispatchClient, healthMonitor, appConfig.Service.DefaultURL, appConfig.Service.FallbackURL)

	ingressQueue := queue.NewIngress(appConfig.Queue.IngressCapacity, logger)
	retryQueue := queue.NewRetry(appConfig.Queue.RetryCapacity, appConfig.Queue.RetryAttemptsTTL, logger)

	buffer := writebuffer.New(store, appConfig.Buffer.BatchSize, appConfig.Buffer.FlushInterval, logger)
	go buffer.RunAgeFlush(ctx)

	pool := workerpool.New(ingressQueue, retryQueue, dispatcher, buffer, logger, appConfig.Worker.PoolSize)
	go pool.Run(ctx)

	coordinator := summarycoord.New(ingressQueue, buffer, store, logger)

	e := echo.New()
	e.Use(middleware.Recover())
	if appConfig.Telemetry.Enabled {
		e.Use(otelecho.Middleware(appConfig.Telemetry.ServiceName))
	}

	paymentHandler := handlers.NewPaymentHandler(ingressQueue)
	summaryHandler := handlers.NewSummaryHandler(coordinator)
	purgeHandler := handlers.NewPurgeHandler(store)

	e.POST("/payments", paymentHandler.Handle)
	e.GET("/payments-summary", summaryHandler.Handle)
	e.POST("/purge-payments", purgeHandler.Handle)

	addr := fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buffer.ForceFlush(shutdownCtx)
	_ = e.Shutdown(shutdownCtx)
}

func setupLogger(appConfig *config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	if appConfig.Telemetry.Enabled {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func setupDbPool(ctx context.Context, appConfig *config.AppConfig) *pgxpool.Pool {
	dbConfig, err := pgxpool.ParseConfig(appConfig.Postgres.URL)
	if err != nil {
		log.Fatalf("invalid database url: %v", err)
	}

	if appConfig.Telemetry.Enabled {
		dbTracer, _ := dbtracer.NewDBTracer("payments")
		dbConfig.ConnConfig.Tracer = dbTracer
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	return dbpool
}

func setupRedisClient(appConfig *config.AppConfig, logger *slog.Logger) *redis.Client {
	opt, err := redis.ParseURL(appConfig.Redis.URL)
	if err != nil {
		logger.Warn("failed to parse redis url, using cache:6379 for health mirror", "error", err)
		opt = &redis.Options{Addr: "cache:6379"}
	}

	client := redis.NewClient(opt)

	if appConfig.Telemetry.Enabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Warn("failed to instrument redis tracing", "error", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Warn("failed to instrument redis metrics", "error", err)
		}
	}

	return client
}

// setupDispatchClient builds the shared HTTP client used by the worker
// pool for both health probes and upstream dispatch, capped at 20
// connections / 10 idle keepalive per host.
func setupDispatchClient(appConfig *config.AppConfig) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if appConfig.Telemetry.Enabled {
		transport = otelhttp.NewTransport(transport)
	}
	return &http.Client{Transport: transport}
}
