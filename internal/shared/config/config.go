// Package config loads the backend's configuration from the environment.
package config

import (
	"os"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DBFileName  string `env:"DB_FILE_NAME" envDefault:"ranked.db"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPW     string `env:"REDIS_PW" envDefault:""`
	WebhookURL  string `env:"DISCORD_WEBHOOK_URL" envDefault:""`
	LobbyServer string `env:"LOBBY_SERVER" envDefault:"lobby.local"`
	LobbyPort   int    `env:"LOBBY_PORT" envDefault:"25565"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadEnv pulls in a .env file for dev/test runs; deployed environments set
// real variables instead.
func LoadEnv() {
	if os.Getenv("ENV") != "PROD" && os.Getenv("ENV") != "DEV" {
		_ = godotenv.Load()
	}
}

func Load() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}
