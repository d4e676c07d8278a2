// Command relayd runs the anonymous relay: the HTTP bridge API, the delivery
// dispatcher and the registry expiry sweep.
//
// @title       Relay API
// @version     1.0
// @description Anonymous relay fanout engine: inbound bridge, mirroring, moderation and operator endpoints.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-relay-backend/internal/config"
	httpapi "github.com/tbourn/go-relay-backend/internal/http"
	"github.com/tbourn/go-relay-backend/internal/http/handlers"
	"github.com/tbourn/go-relay-backend/internal/observability"
	"github.com/tbourn/go-relay-backend/internal/pubsub"
	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/scheduler"
	"github.com/tbourn/go-relay-backend/internal/services"
	"github.com/tbourn/go-relay-backend/internal/sysutil"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

var version = "dev"

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(os.Stderr, "info", false)
		log.Fatal().Err(err).Msg("config")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("relayd exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	dsn := cfg.DBPath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Warn().Err(err).Msg("db close")
		}
	}()
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if cfg.OTEL.Enabled {
		if err := observability.InstrumentDB(db); err != nil {
			return err
		}
	}

	store := repo.NewStore(db)
	bot := cfg.BotIdentity()
	reg := registry.New(cfg.Engine.Retention)
	q := queue.New()

	var client transport.Client = transport.NewLoopback()
	if cfg.Transport.Kind == "webhook" {
		client = transport.NewWebhook(cfg.Transport.WebhookURL, cfg.Transport.WebhookTimeout)
	}

	reach := services.NewReachabilityCache(store, cfg.Engine.BotID, cfg.Engine.ReachTTL)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RedisURL != "" {
		peers, err := pubsub.NewRedis(cfg.RedisURL, cfg.Engine.BotID)
		if err != nil {
			return err
		}
		defer peers.Close()
		if err := peers.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; reachability invalidation stays local")
		} else {
			reach.Peers = peers
			g.Go(func() error {
				err := peers.Subscribe(gctx, func(uid int64) {
					log.Debug().Int64("uid", uid).Msg("reachability: remote invalidation")
					reach.Invalidate()
				})
				if err != nil {
					log.Warn().Err(err).Msg("redis subscription ended; reachability invalidation stays local")
				}
				return nil
			})
		}
	}

	disp := &services.Dispatcher{
		Queue:        q,
		Registry:     reg,
		Store:        store,
		Reach:        reach,
		Transport:    client,
		BotID:        bot,
		Workers:      cfg.Engine.Workers,
		RetryWindow:  cfg.Engine.RetryWindow,
		RetryBackoff: cfg.Engine.RetryBackoff,
		Limiter:      rate.NewLimiter(rate.Limit(cfg.Engine.SendRPS), cfg.Engine.SendBurst),
	}
	mirror := &services.MirrorService{Registry: reg, Store: store, Transport: client, Users: store, BotID: bot}
	h := handlers.New(
		&services.RelayService{Registry: reg, Store: store, Users: store, Reach: reach, Dispatcher: disp, BotID: bot},
		mirror,
		&services.UserService{Users: store, Reach: reach},
		&services.ModerationService{Registry: reg, Users: store, Mirror: mirror, Transport: client},
		&services.StatsService{DB: db, Registry: reg, Queue: q, BotID: bot},
	)

	sched := scheduler.New()
	expiry := &services.ExpiryTask{Registry: reg, Queue: q}
	if err := sched.Register("registry-expiry", expiry.Run, cfg.Engine.ExpiryInterval); err != nil {
		return err
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, h, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g.Go(func() error { return disp.Run(gctx) })
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", ver).
			Str("transport", cfg.Transport.Kind).Str("db", cfg.DBDriver).
			Msg("relayd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
