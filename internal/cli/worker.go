package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quiz-arena/internal/app"
	"quiz-arena/internal/infra/postgres"
)

// NewWorkerCmd runs only the result consumer, for deployments that keep
// database writes off the match servers.
func NewWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued match results into postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), *configPath)
		},
	}
}

func runWorker(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.close()
	if d.redis == nil || d.db == nil {
		return errors.New("worker needs both redis and postgres configured")
	}
	if err := applyMigrations(ctx, d.db, d.log); err != nil {
		return err
	}
	d.log.Info("result worker started")
	return newResultWorker(d).Run(ctx)
}

func postgresRecorder(d *deps) app.ResultRecorder {
	return postgres.NewResultStore(d.db)
}
