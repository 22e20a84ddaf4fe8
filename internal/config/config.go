package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all process configuration, resolved once at startup from the
// environment (optionally seeded from a .env file).
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	ChannelID        string `env:"CHANNEL_ID,required"`

	JWTSecret     string `env:"JWT_SECRET,required"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	PollTimeoutSeconds int           `env:"POLL_TIMEOUT_SECONDS" envDefault:"10"`
	PollRetryBackoff   time.Duration `env:"POLL_RETRY_BACKOFF" envDefault:"3s"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
	InviteValidity     time.Duration `env:"INVITE_VALIDITY" envDefault:"168h"`
}

// Load reads .env when present, then parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
