package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	OpenAIAPIKey string
	Model        string
	BaseURL      string
	// DatabaseURL enables the Postgres correction cache when set.
	DatabaseURL string
	WorkerCount int
	BatchSize   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		WorkerCount:  getEnvInt("WORKER_COUNT", 8),
		BatchSize:    getEnvInt("BATCH_SIZE", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
