package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Port               string
	Environment        string
	APIKey             string
	AdminUsername      string
	AdminPassword      string
	LogLevel           string
	LogEncoding        string
	DemandSeriesFile   string   // 起動時に読み込む需要実績ファイル（.xlsx / .csv）
	DailyLimitDays     int      // 日次系列の最大日数
	WeeklyLimitWeeks   int      // 週次系列の最大週数
	CORSAllowedOrigins []string // 空の場合は全オリジンを許可
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	environment := getEnv("ENVIRONMENT", "development")

	defaultEncoding := "json"
	if environment == "development" {
		defaultEncoding = "console"
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        environment,
		APIKey:             getEnv("API_KEY", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogEncoding:        getEnv("LOG_ENCODING", defaultEncoding),
		DemandSeriesFile:   getEnv("DEMAND_SERIES_FILE", ""),
		DailyLimitDays:     getEnvInt("DAILY_LIMIT_DAYS", 90),
		WeeklyLimitWeeks:   getEnvInt("WEEKLY_LIMIT_WEEKS", 26),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

// IsDevelopment 開発環境かどうか
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 正の整数として環境変数を取得（不正値はデフォルト）
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}

// getEnvList カンマ区切りの環境変数を取得
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
