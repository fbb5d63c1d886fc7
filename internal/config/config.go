package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		ShutdownTimeout string   `yaml:"shutdownTimeout"`
	} `yaml:"server"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// Instance names this process in room code reservations.
		Instance string `yaml:"instance"`
		// PublishEvents relays room events over pub/sub.
		PublishEvents bool `yaml:"publishEvents"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Match struct {
		Countdown       string `yaml:"countdown"`
		Results         string `yaml:"results"`
		DisconnectGrace string `yaml:"disconnectGrace"`
	} `yaml:"match"`
	Rooms struct {
		CodeLength    int    `yaml:"codeLength"`
		MaxCodeLength int    `yaml:"maxCodeLength"`
		CodeAttempts  int    `yaml:"codeAttempts"`
		Retention     string `yaml:"retention"`
		IdleTTL       string `yaml:"idleTTL"`
		EmptyGrace    string `yaml:"emptyGrace"`
		SweepSchedule string `yaml:"sweepSchedule"`
	} `yaml:"rooms"`
	Auth struct {
		JWTSecret   string `yaml:"jwtSecret"`
		Issuer      string `yaml:"issuer"`
		TokenTTL    string `yaml:"tokenTTL"`
		AllowGuests *bool  `yaml:"allowGuests"`
	} `yaml:"auth"`
	Queue struct {
		Enabled     bool   `yaml:"enabled"`
		Name        string `yaml:"name"`
		MaxRetry    int    `yaml:"maxRetry"`
		Concurrency int    `yaml:"concurrency"`
		// RunWorker consumes result tasks inside the start command.
		RunWorker bool `yaml:"runWorker"`
	} `yaml:"queue"`
}

// GuestsAllowed defaults to true when unset.
func (c Config) GuestsAllowed() bool {
	return c.Auth.AllowGuests == nil || *c.Auth.AllowGuests
}

// Load reads .env (if present), then YAML config from path, then applies
// environment overrides. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Redis.Instance, "INSTANCE_ID")
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
