package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN string
	RedisAddr   string
	HTTPAddr    string
	LogLevel    string
	LogFile     string

	// Tracker
	EventProducer string
	RelayWorkers  int
	RelayInterval time.Duration
	RelayBatch    int
	StreamMaxLen  int64

	// Accounting
	ConsumerGroup string
	ConsumerName  string
	ConsumerBlock time.Duration
	ReclaimIdle   time.Duration
	AssignmentFee int64
}

// Load reads an optional .env file and then the environment. Defaults suit a
// local docker-compose setup.
func Load(service string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	hostname, _ := os.Hostname()
	cfg := Config{
		DatabaseDSN:   getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname="+service+" port=5432 sslmode=disable"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		EventProducer: getenv("EVENT_PRODUCER", service),
		ConsumerGroup: getenv("CONSUMER_GROUP", service),
		ConsumerName:  getenv("CONSUMER_NAME", service+"-"+hostname),
	}

	var err error
	if cfg.RelayWorkers, err = intEnv("RELAY_WORKERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.RelayBatch, err = intEnv("RELAY_BATCH", 50); err != nil {
		return Config{}, err
	}
	if cfg.StreamMaxLen, err = int64Env("STREAM_MAX_LEN", 100000); err != nil {
		return Config{}, err
	}
	if cfg.AssignmentFee, err = int64Env("ASSIGNMENT_FEE", 10); err != nil {
		return Config{}, err
	}
	if cfg.RelayInterval, err = durationEnv("RELAY_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.ConsumerBlock, err = durationEnv("CONSUMER_BLOCK", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReclaimIdle, err = durationEnv("RECLAIM_IDLE", 30*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.RelayWorkers < 1 {
		return Config{}, errors.New("RELAY_WORKERS must be at least 1")
	}
	if cfg.RelayBatch < 1 {
		return Config{}, errors.New("RELAY_BATCH must be at least 1")
	}
	// XREADGROUP treats BLOCK 0 as "wait forever".
	if cfg.ConsumerBlock <= 0 {
		return Config{}, errors.New("CONSUMER_BLOCK must be positive")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func int64Env(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
