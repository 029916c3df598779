package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Server is the process configuration of cmd/server.
type Server struct {
	HTTPAddr        string  `env:"HH_HTTP_ADDR" envDefault:":8080"`
	WSAddr          string  `env:"HH_WS_ADDR" envDefault:":8081"`
	DBDSN           string  `env:"HH_DB_DSN"`
	MigrationsDir   string  `env:"HH_MIGRATIONS_DIR" envDefault:"db/migrations"`
	TuningPath      string  `env:"HH_TUNING_PATH"`
	JournalDir      string  `env:"HH_JOURNAL_DIR"`
	OutcomeIndex    string  `env:"HH_OUTCOME_INDEX"`
	MapGenerator    string  `env:"HH_MAP_GENERATOR" envDefault:"simplex"`
	IntentRate      float64 `env:"HH_INTENT_RATE" envDefault:"10"`
	IntentBurst     int     `env:"HH_INTENT_BURST" envDefault:"20"`
	StartingBalance int64   `env:"HH_STARTING_BALANCE" envDefault:"500"`
	BroadcastQueue  int     `env:"HH_BROADCAST_QUEUE" envDefault:"64"`
	CORSOrigin      string  `env:"HH_CORS_ORIGIN"`
	LogLevel        string  `env:"HH_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint    string  `env:"HH_OTEL_ENDPOINT"`
}

// Watch is the configuration of cmd/farmwatch.
type Watch struct {
	URL        string `env:"HH_WATCH_URL" envDefault:"ws://localhost:8081/ws"`
	MapID      string `env:"HH_WATCH_MAP"`
	OwnerID    string `env:"HH_WATCH_OWNER"`
	TuningPath string `env:"HH_TUNING_PATH"`
	LogLevel   string `env:"HH_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	switch cfg.MapGenerator {
	case "simplex", "flat":
	default:
		return Server{}, fmt.Errorf("HH_MAP_GENERATOR: unknown generator %q", cfg.MapGenerator)
	}
	if cfg.IntentRate <= 0 || cfg.IntentBurst <= 0 {
		return Server{}, fmt.Errorf("HH_INTENT_RATE and HH_INTENT_BURST must be positive")
	}
	return cfg, nil
}
