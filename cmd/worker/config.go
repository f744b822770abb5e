package main

import (
	"log"
	"strconv"

	"marketplace-backend/internal/shared/utils"
)

// Config holds all configuration for the worker
type Config struct {
	RedisAddr   string
	Concurrency int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	concurrency := 10
	if raw := utils.GetEnvVariable("WORKER_CONCURRENCY", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			concurrency = n
		}
	}

	cfg := &Config{
		RedisAddr:   utils.GetEnvVariable("REDIS_HOST", "localhost:6379"),
		Concurrency: concurrency,
	}

	log.Printf("[Config] Redis: %s, Concurrency: %d", cfg.RedisAddr, cfg.Concurrency)

	return cfg
}
