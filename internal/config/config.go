package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port    string
	DBName  string
	GinMode string

	// Empty accepts consent for any policy version.
	ConsentPolicyVersion string

	// Zero disables screenshot deletion.
	ScreenshotRetention time.Duration
	RetentionInterval   time.Duration
}

type AgentConfig struct {
	ServerURL string
	UserID    string
	AuthToken string

	Interval     time.Duration
	Display      int
	OCRLanguages []string
	Keywords     []string

	FullName       string
	Email          string
	Organization   string
	ConsentVersion string
}

// loadDotEnv reads .env when present; the environment always wins.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
	}
}

func LoadServer() *ServerConfig {
	loadDotEnv()
	return &ServerConfig{
		Port:                 getEnv("SERVER_PORT", ":8080"),
		DBName:               getEnv("DB_NAME", "monitoring.db"),
		GinMode:              getEnv("GIN_MODE", "release"),
		ConsentPolicyVersion: getEnv("CONSENT_POLICY_VERSION", ""),
		ScreenshotRetention:  getEnvDuration("SCREENSHOT_RETENTION", 0),
		RetentionInterval:    getEnvDuration("RETENTION_INTERVAL", 30*time.Minute),
	}
}

func LoadAgent() *AgentConfig {
	loadDotEnv()
	interval := time.Duration(getEnvInt("SCREENSHOT_INTERVAL_SEC", 60)) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &AgentConfig{
		ServerURL:      getEnv("SERVER_URL", "http://localhost:8080"),
		UserID:         getEnv("MONITOR_USER_ID", ""),
		AuthToken:      getEnv("MONITOR_AUTH_TOKEN", ""),
		Interval:       interval,
		Display:        getEnvInt("DISPLAY_INDEX", 0),
		OCRLanguages:   getEnvList("OCR_LANGUAGES", []string{"eng"}),
		Keywords:       getEnvList("MONITOR_KEYWORDS", nil),
		FullName:       getEnv("MONITOR_FULL_NAME", ""),
		Email:          getEnv("MONITOR_EMAIL", ""),
		Organization:   getEnv("MONITOR_ORGANIZATION", ""),
		ConsentVersion: getEnv("CONSENT_VERSION", "v1"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("ignoring malformed duration", "key", key, "value", v)
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
