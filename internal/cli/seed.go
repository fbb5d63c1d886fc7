package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-arena/internal/config"
	"quiz-arena/internal/infra/memory"
	"quiz-arena/internal/infra/postgres"
	redisinfra "quiz-arena/internal/infra/redis"
)

// NewSeedCmd loads the bundled sample questions into postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample question set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	d, err := openDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.close()
	if d.db == nil {
		return errors.New("postgres url not configured")
	}
	if err := applyMigrations(ctx, d.db, d.log); err != nil {
		return err
	}
	n, err := postgres.NewQuestionStore(d.db).Upsert(ctx, memory.SampleQuestions())
	if err != nil {
		return err
	}
	d.log.Info("questions seeded", zap.Int("count", n))

	// cached pools would hide the new rows until they expire
	if d.redis != nil {
		cache := redisinfra.NewQuestionCache(d.redis, nil, config.Duration(d.cfg.Questions.TTL, 0))
		if err := cache.Invalidate(ctx); err != nil {
			d.log.Warn("invalidate question cache failed", zap.Error(err))
		}
	}
	return nil
}
