package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quiz-arena/internal/app"
	"quiz-arena/internal/config"
	"quiz-arena/internal/identity"
	"quiz-arena/internal/infra/memory"
	redisinfra "quiz-arena/internal/infra/redis"
	"quiz-arena/internal/queue"
	transport "quiz-arena/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.close()
	log := d.log

	if d.db != nil {
		if err := applyMigrations(ctx, d.db, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = d.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	consume := d.tasks != nil && d.cfg.Queue.RunWorker
	if consume && d.db == nil {
		return errors.New("queue.runWorker needs postgres to store results")
	}

	regCfg, err := d.registryConfig()
	if err != nil {
		return err
	}
	store, sharedStore := d.roomStore()
	bank := memory.NewQuestionBank(d.questionLoader(), config.Duration(d.cfg.Questions.TTL, 10*time.Minute))
	recorder := d.recorder()
	archiver := app.NewArchiver(recorder, log, time.Minute)

	opts := []app.RegistryOption{app.WithLogger(log), app.WithArchiver(archiver)}
	if d.redis != nil && d.cfg.Redis.PublishEvents {
		opts = append(opts, app.WithEventSink(redisinfra.NewEventPublisher(d.redis)))
	}
	registry := app.NewRegistry(store, bank, regCfg, opts...)
	service := app.NewMatchService(registry)

	secret := d.cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("auth.jwtSecret not set, issued tokens will not survive a restart")
		secret = randomSecret()
	}
	ids := identity.NewService(secret, d.cfg.Auth.Issuer, config.Duration(d.cfg.Auth.TokenTTL, 24*time.Hour), d.cfg.GuestsAllowed())

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, ids, log, d.cfg.Server.AllowedOrigins),
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting match server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return runJanitor(gctx, registry, sharedStore, d.cfg.Rooms.SweepSchedule, log)
	})
	if consume {
		worker := newResultWorker(d)
		g.Go(func() error { return worker.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(d.cfg.Server.ShutdownTimeout, 5*time.Second))
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		registry.Close(shutdownCtx)
		return err
	})
	return g.Wait()
}

// runJanitor sweeps expired rooms and keeps shared code reservations alive.
func runJanitor(ctx context.Context, registry *app.Registry, shared *redisinfra.RoomStore, schedule string, log *zap.Logger) error {
	if schedule == "" {
		schedule = "@every 1m"
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := registry.Sweep(ctx, time.Now()); n > 0 {
			log.Info("swept rooms", zap.Int("count", n))
		}
		if shared != nil {
			if err := shared.Refresh(ctx); err != nil {
				log.Warn("refresh room reservations failed", zap.Error(err))
			}
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func newResultWorker(d *deps) *queue.Worker {
	return queue.NewWorker(d.redisConnOpt(), d.cfg.Queue.Name, d.cfg.Queue.Concurrency, postgresRecorder(d), d.log)
}
