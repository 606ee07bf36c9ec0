package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	natsinfra "live-quiz-service/internal/infra/nats"
	redisinfra "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/infra/sqlite"
	transport "live-quiz-service/internal/transport/http"
)

// projectionBuffer is the queue length of the hub taps feeding the archive, mirror and
// NATS bridge. They must keep up with bursts of answers.
const projectionBuffer = 1024

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	loader, err := d.catalogLoader(cfg)
	if err != nil {
		return err
	}
	catalog, err := loader.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("source", cfg.Catalog.Source).Int("sessions", len(catalog.Sessions)).Msg("catalog loaded")

	hub := broadcast.NewHub(broadcast.DefaultBuffer)
	defer hub.Close()

	engine, err := app.NewEngine(catalog,
		app.WithSink(hub),
		app.WithScorer(app.Scorer{Base: cfg.Quiz.BaseScore, MaxBonus: cfg.Quiz.MaxSpeedBonus}),
		app.WithReviewDelay(config.TTLDuration(cfg.Quiz.ReviewDelay, 0)),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	auth, err := app.NewAuthenticator(cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		log.Warn().Msg("no admin password configured, admin commands are disabled")
	}

	checks := map[string]transport.HealthCheck{}
	var archive app.ResultArchive = memory.NewArchive()
	if cfg.Archive.Path != "" {
		sqliteArchive, err := sqlite.NewArchive(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer sqliteArchive.Close()
		archive = sqliteArchive
		checks["archive"] = sqliteArchive.Ping
	}
	if d.redis != nil {
		client := d.redis
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, client) }
	}
	if d.pool != nil {
		checks["postgres"] = d.pool.Ping
	}

	var publisher *natsinfra.Publisher
	if cfg.NATS.URL != "" {
		natsCfg := natsinfra.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		publisher, err = natsinfra.NewPublisher(natsCfg)
		if err != nil {
			return err
		}
		defer publisher.Close()
		checks["nats"] = func(context.Context) error { return publisher.Healthy() }
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Engine:         engine,
			Hub:            hub,
			Auth:           auth,
			Archive:        archive,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Checks:         checks,
		}),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	g, gctx := errgroup.WithContext(ctx)

	archiveSub := hub.SubscribeAll(projectionBuffer)
	g.Go(func() error {
		defer archiveSub.Close()
		return app.NewArchiver(archive, nil).Run(gctx, archiveSub.Events())
	})

	if d.redis != nil {
		mirrorSub := hub.SubscribeAll(projectionBuffer)
		mirror := redisinfra.NewStateMirror(d.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		g.Go(func() error {
			defer mirrorSub.Close()
			return mirror.Run(gctx, mirrorSub.Events())
		})
	}

	if publisher != nil {
		natsSub := hub.SubscribeAll(projectionBuffer)
		g.Go(func() error {
			defer natsSub.Close()
			return publisher.Run(gctx, natsSub.Events())
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
