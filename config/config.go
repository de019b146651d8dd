// Package config loads server configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int    // PORT, default 8080
	DBPath   string // WALLET_DB, sqlite path or ":memory:", default wallet.db
	Currency string // WALLET_CURRENCY, default EUR
	SelfHeal bool   // WALLET_SELF_HEAL, default false (production-safe)
	Env      string // ENV, "development" or "production", default development
}

func Load() Config {
	godotenv.Load()

	return Config{
		Port:     getEnvInt("PORT", 8080),
		DBPath:   getEnv("WALLET_DB", "wallet.db"),
		Currency: getEnv("WALLET_CURRENCY", "EUR"),
		SelfHeal: getEnvBool("WALLET_SELF_HEAL", false),
		Env:      getEnv("ENV", "development"),
	}
}

func (c Config) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
