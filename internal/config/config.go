// Package config loads bot configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWelcome greets users until the admin changes it.
const DefaultWelcome = "👋 Welcome to PrepVault\nI am your UPSC study assistant.\nChoose a section below ⬇️"

// DefaultSubjects seed an empty database.
var DefaultSubjects = []string{
	"🏛️ Ancient History",
	"🕌 Medieval History",
	"🏫 Modern History",
	"🧠 Polity",
	"🌍 Geography",
	"📕 Ethics",
}

// Config holds everything the process needs to start.
type Config struct {
	BotToken      string
	AdminID       int64
	DatabasePath  string
	Welcome       string
	DBBusyTimeout time.Duration
}

// Load reads the environment (and .env if present). BOT_TOKEN and
// ADMIN_ID are required; everything else has a default.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:      getEnv("BOT_TOKEN", ""),
		DatabasePath:  getEnv("DATABASE_PATH", "prepvault.db"),
		Welcome:       getEnv("WELCOME_MESSAGE", DefaultWelcome),
		DBBusyTimeout: time.Duration(getEnvAsInt("DB_BUSY_TIMEOUT_MS", 30000)) * time.Millisecond,
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("config: BOT_TOKEN is required")
	}

	adminStr := getEnv("ADMIN_ID", "")
	if adminStr == "" {
		return nil, fmt.Errorf("config: ADMIN_ID is required")
	}
	adminID, err := strconv.ParseInt(adminStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_ID must be a numeric user id: %w", err)
	}
	cfg.AdminID = adminID

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}
