package runner

import (
	"context"
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
)

const (
	RunModeWeb = iota + 1
)

var ErrInvalidRunMode = errors.New("invalid run mode")

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	Addr       string
	DataFolder string
	Dsn        string
	InMemory   bool
	Debug      bool
	RunMode    int

	// Enrichment backend. The API key is process-wide configuration and is
	// never part of a per-request contract.
	HuggingFaceAPIKey string
	ModelID           string

	// Optional bio cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func ParseConfig() *Config {
	cfg := Config{}

	flag.StringVar(&cfg.Addr, "addr", ":"+getEnv("PORT", "8080"), "address to listen on")
	flag.StringVar(&cfg.DataFolder, "data-folder", getEnv("DATA_FOLDER", "webdata"), "data folder for the sqlite store")
	flag.StringVar(&cfg.Dsn, "dsn", getEnv("DATABASE_URL", ""), "postgres connection string [sqlite is used when empty]")
	flag.BoolVar(&cfg.InMemory, "memory", false, "use the in-memory store (no persistence)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")

	flag.Parse()

	cfg.HuggingFaceAPIKey = getEnv("HUGGINGFACE_API_KEY", "")
	cfg.ModelID = getEnv("MODEL_ID", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")

	if v, err := strconv.Atoi(getEnv("REDIS_DB", "0")); err == nil {
		cfg.RedisDB = v
	}

	cfg.RunMode = RunModeWeb

	return &cfg
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}

	return value
}
