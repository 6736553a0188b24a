package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/collabcore"
	"github.com/yourorg/collabcore/internal/collab"
	"github.com/yourorg/collabcore/internal/domain"
	"github.com/yourorg/collabcore/internal/infrastructure/logger"
	"github.com/yourorg/collabcore/internal/infrastructure/redis"
	"github.com/yourorg/collabcore/internal/notify"
	"github.com/yourorg/collabcore/internal/observability/tracing"
	"github.com/yourorg/collabcore/internal/repository"
	"github.com/yourorg/collabcore/internal/security/audit"
	"github.com/yourorg/collabcore/internal/security/password"
	"github.com/yourorg/collabcore/internal/security/ratelimit"
	"github.com/yourorg/collabcore/internal/security/token"
	"github.com/yourorg/collabcore/internal/worker"
	"github.com/yourorg/collabcore/pkg/config"
	"github.com/yourorg/collabcore/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting collabcore identity server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op without an OTLP endpoint configured)
	shutdownTracing, err := tracing.Init(ctx, log, "collabcore", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. User store
	var store domain.UserStore
	switch cfg.StorageDriver {
	case "postgres":
		pool, err := database.NewConnectionPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		pg := repository.NewPostgresUserStore(pool.GetDB(), log)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = pg
	default:
		store = repository.NewMemoryUserStore()
		log.Warn("using in-memory user store; data is lost on restart")
	}

	// 5. Reset-code notification pipeline
	var sink domain.Notifier
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		sink = notify.NewRedisNotifier(redisClient, cfg.ResetQueue)
	} else {
		sink = notify.NewSlogNotifier(log)
		log.Warn("no Redis configured; reset codes go to the application log")
	}
	dispatcher := notify.NewDispatcher(sink, log)

	// 6. Identity core. The channel/message collaborators run in other
	// services; until a host wires the real ones, the in-process provider
	// reports an empty workspace.
	loginLimiter := ratelimit.NewLimiter(cfg.LoginAttempts, cfg.LoginWindow)
	resetLimiter := ratelimit.NewLimiter(cfg.ResetAttempts, cfg.ResetWindow)
	world := collab.NewStatic()
	core := collabcore.New(collabcore.Options{
		Store:        store,
		Tokens:       token.NewManager(cfg.JWTSecret, "collabcore", cfg.TokenTTL),
		Codec:        password.NewCodec(cfg.BcryptCost),
		Notifier:     dispatcher,
		Membership:   world,
		Messages:     world,
		LoginLimiter: loginLimiter,
		ResetLimiter: resetLimiter,
		Audit:        audit.NewLogger(log),
		Logger:       log,
	})

	// 7. Background stats exporter
	exporter := worker.NewStatsExporter(core.Stats, store, cfg.StatsExportInterval, log)
	go exporter.Start(ctx)

	// 8. Operational endpoints only; the identity API itself is consumed
	// in-process by the host application.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("redis not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("metrics server starting", slog.Int("port", cfg.MetricsPort))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop the stats exporter
	loginLimiter.Stop()
	resetLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
