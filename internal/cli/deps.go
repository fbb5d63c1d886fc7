package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
	"quiz-arena/internal/config"
	"quiz-arena/internal/infra/memory"
	"quiz-arena/internal/infra/postgres"
	redisinfra "quiz-arena/internal/infra/redis"
	"quiz-arena/internal/logging"
	"quiz-arena/internal/queue"
)

// deps holds the optional backends a command opened. Nil fields are not configured.
type deps struct {
	cfg   config.Config
	log   *zap.Logger
	redis *redis.Client
	pool  *pgxpool.Pool
	db    *bun.DB
	tasks *asynq.Client
}

func openDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	d := &deps{cfg: cfg, log: log}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := d.redis.Ping(ctx).Err(); err != nil {
			d.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}
	if cfg.Postgres.URL != "" {
		d.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.db = postgres.OpenBun(cfg.Postgres.URL)
	}
	if cfg.Queue.Enabled {
		if d.redis == nil {
			d.close()
			return nil, fmt.Errorf("queue enabled without redis")
		}
		d.tasks = asynq.NewClient(d.redisConnOpt())
	}
	return d, nil
}

func (d *deps) redisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     d.cfg.Redis.Addr,
		Password: d.cfg.Redis.Password,
		DB:       d.cfg.Redis.DB,
	}
}

func (d *deps) close() {
	if d.tasks != nil {
		_ = d.tasks.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	_ = d.log.Sync()
}

// questionLoader chains postgres and the redis cache when configured,
// falling back to the bundled sample questions.
func (d *deps) questionLoader() memory.QuestionLoader {
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.SampleQuestions())
	if d.pool != nil {
		loader = postgres.NewQuestionLoader(d.pool)
	}
	if d.redis != nil {
		ttl := config.Duration(d.cfg.Questions.TTL, 10*time.Minute)
		loader = redisinfra.NewQuestionCache(d.redis, loader, ttl)
	}
	return loader
}

// roomStore returns the redis backed store when redis is configured.
func (d *deps) roomStore() (app.RoomStore, *redisinfra.RoomStore) {
	if d.redis == nil {
		return memory.NewRoomStore(), nil
	}
	instance := d.cfg.Redis.Instance
	if instance == "" {
		instance = uuid.NewString()
	}
	store := redisinfra.NewRoomStore(d.redis, instance, config.Duration(d.cfg.Redis.TTL, 10*time.Minute), d.log)
	return store, store
}

// recorder picks where finished matches go: the task queue, postgres, or
// an in-process log.
func (d *deps) recorder() app.ResultRecorder {
	switch {
	case d.tasks != nil:
		return queue.NewResultPublisher(d.tasks, d.cfg.Queue.Name, d.cfg.Queue.MaxRetry)
	case d.db != nil:
		return postgres.NewResultStore(d.db)
	default:
		d.log.Warn("no result storage configured, keeping results in memory")
		return memory.NewResultLog()
	}
}

func (d *deps) registryConfig() (app.RegistryConfig, error) {
	cfg := app.DefaultRegistryConfig()
	rooms := d.cfg.Rooms
	if rooms.CodeLength > 0 {
		cfg.CodeLength = rooms.CodeLength
	}
	if rooms.MaxCodeLength > 0 {
		cfg.MaxCodeLength = rooms.MaxCodeLength
	}
	if rooms.CodeAttempts > 0 {
		cfg.CodeAttempts = rooms.CodeAttempts
	}
	if cfg.MaxCodeLength < cfg.CodeLength {
		return cfg, fmt.Errorf("rooms.maxCodeLength %d below codeLength %d", cfg.MaxCodeLength, cfg.CodeLength)
	}
	cfg.Retention = config.Duration(rooms.Retention, cfg.Retention)
	cfg.IdleTTL = config.Duration(rooms.IdleTTL, cfg.IdleTTL)
	cfg.EmptyGrace = config.Duration(rooms.EmptyGrace, cfg.EmptyGrace)

	match := d.cfg.Match
	cfg.Coordinator.Match.Countdown = config.Duration(match.Countdown, cfg.Coordinator.Match.Countdown)
	cfg.Coordinator.Match.ResultsDuration = config.Duration(match.Results, cfg.Coordinator.Match.ResultsDuration)
	cfg.Coordinator.DisconnectGrace = config.Duration(match.DisconnectGrace, cfg.Coordinator.DisconnectGrace)
	return cfg, nil
}

func randomSecret() string {
	return uuid.NewString() + uuid.NewString()
}
