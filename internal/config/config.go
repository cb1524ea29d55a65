package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr             string        `envconfig:"ADDR" default:":8080"`
	DBPath           string        `envconfig:"DB_PATH" default:"chatroom.db"`
	JWTSecret        string        `envconfig:"JWT_SECRET" default:"change_me_in_production"`
	TokenTTL         time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	HistoryLimit     int           `envconfig:"HISTORY_LIMIT" default:"50"`
	MaxMessageLength int           `envconfig:"MAX_MESSAGE_LENGTH" default:"500"`
	MessageCap       int           `envconfig:"MESSAGE_CAP" default:"1000"`
	PruneInterval    time.Duration `envconfig:"PRUNE_INTERVAL" default:"5m"`
	SendBuffer       int           `envconfig:"SEND_BUFFER" default:"256"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment, after loading a
// .env file if one is present in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
