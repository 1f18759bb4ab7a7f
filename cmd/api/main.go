package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usuarios/registry/internal/api"
	"github.com/usuarios/registry/internal/api/handler"
	"github.com/usuarios/registry/internal/api/metrics"
	"github.com/usuarios/registry/internal/app/form"
	"github.com/usuarios/registry/internal/core/registry"
	"github.com/usuarios/registry/internal/core/service"
	"github.com/usuarios/registry/internal/infrastructure/broadcast"
	"github.com/usuarios/registry/internal/infrastructure/config"
	mongostore "github.com/usuarios/registry/internal/infrastructure/db/mongo"
	redisstore "github.com/usuarios/registry/internal/infrastructure/db/redis"
	"github.com/usuarios/registry/internal/infrastructure/queue"
	"github.com/usuarios/registry/pkg/logger"
)

const serviceName = "user-registry"

// @title                       User Registry API
// @version                     1.0
// @description                 Registration, validation and maintenance of institutional user records.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: serviceName,
	})

	recorder := metrics.Recorder{}
	readiness := map[string]handler.Pinger{}
	opts := []service.Option{service.WithMetrics(recorder)}

	// --- Audit trail (optional) ---
	var dispatcher *queue.Dispatcher
	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongostore.Disconnect(client); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}()

		repo := mongostore.NewAuditRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure audit indexes")
		}
		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, repo, recorder, logger.Component("audit"))
		opts = append(opts, service.WithAudit(dispatcher))
		readiness["mongodb"] = handler.PingerFunc(func(ctx context.Context) error {
			return mongostore.Ping(ctx, db)
		})
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit trail enabled")
	} else {
		log.Info().Msg("MONGO_URI not set, audit trail disabled")
	}

	// --- Idempotency keys (optional) ---
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		opts = append(opts, service.WithIdempotency(redisstore.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)))
		readiness["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency store enabled")
	} else {
		log.Info().Msg("REDIS_ADDR not set, Idempotency-Key is ignored")
	}

	// --- Core ---
	hub := broadcast.NewHub(log)
	opts = append(opts, service.WithNotifier(hub))
	users := service.NewUserService(registry.New(), log, opts...)
	if list, err := users.List(ctx); err == nil {
		hub.Prime(list)
	}
	forms := form.NewManager(users, log, recorder)

	if !cfg.AuthEnabled() {
		log.Warn().Msg("JWT_SECRET not set, API is unauthenticated")
	}
	e := api.NewRouter(api.Deps{
		Users:     users,
		Forms:     forms,
		Stream:    hub,
		Readiness: readiness,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})
	e.Server.ReadHeaderTimeout = 10 * time.Second

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)
	if dispatcher != nil {
		dispatcher.Start(gctx)
	}

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweepForms(gctx, forms, cfg.FormSessionTTL)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if dispatcher != nil {
		dispatcher.Close()
	}
	if err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// sweepForms closes idle form sessions until ctx is cancelled.
func sweepForms(ctx context.Context, forms *form.Manager, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			forms.Sweep(ttl)
		}
	}
}
