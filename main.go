package main

import (
	"alumni-server/config"
	"alumni-server/handlers"
	"alumni-server/middleware"
	"alumni-server/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	store, closeStore, err := newUserStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis
	limiter, closeLimiter := newLoginLimiter(ctx, cfg, logger)
	defer closeLimiter()

	photos, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	tokens, err := services.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	userService := services.NewUserService(services.UserServiceDeps{
		Store:   store,
		Hasher:  services.NewPasswordHasher(),
		Tokens:  tokens,
		Photos:  photos,
		Limiter: limiter,
		Logger:  logger,
	})
	connectionService := services.NewConnectionService(store, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := handlers.NewRouter(handlers.RouterConfig{
		UserService:       userService,
		ConnectionService: connectionService,
		Tokens:            tokens,
		Logger:            logger,
		AllowedOrigins:    cfg.AllowedOrigins,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		Metrics:           middleware.NewMetrics(reg),
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		PublicDir:         cfg.PublicDir,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.UserStore, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory user store; data is lost on restart")
		return services.NewMemoryUserStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	disconnect := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("failed to disconnect from MongoDB", slog.Any("error", err))
		}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store, err := services.NewMongoUserStore(connectCtx, client, cfg.MongoDatabase, cfg.MongoTransactions)
	if err != nil {
		disconnect()
		return nil, nil, err
	}
	logger.Info("connected to MongoDB",
		slog.String("database", cfg.MongoDatabase),
		slog.Bool("transactions", cfg.MongoTransactions),
	)
	return store, disconnect, nil
}

func newLoginLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.LoginLimiter, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set; login throttling disabled")
		return services.NoopLoginLimiter{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so an unreachable Redis only costs throttling.
		logger.Warn("could not connect to Redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	} else {
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	limiter := services.NewRedisLoginLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindow)
	return limiter, func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close Redis client", slog.Any("error", err))
		}
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.PhotoStore, error) {
	if cfg.S3Bucket == "" {
		logger.Info("storing photos on disk", slog.String("dir", cfg.PublicDir))
		return services.NewDiskPhotoStore(cfg.PublicDir), nil
	}

	store, err := services.NewS3PhotoStore(ctx, services.S3Options{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 photo store: %w", err)
	}
	logger.Info("storing photos in S3", slog.String("bucket", cfg.S3Bucket))
	return store, nil
}
