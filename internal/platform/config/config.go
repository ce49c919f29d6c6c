package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストアの種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// StoreDriver はドキュメントストアの実装 ("postgres" or "memory")
	StoreDriver string

	// OpenAI設定
	OpenAI OpenAIConfig

	// AIタスクワーカー設定
	Worker WorkerConfig

	// HTTPサーバー設定
	HTTP HTTPConfig

	// UniversityEmailDomains は大学メールとして扱うドメイン
	UniversityEmailDomains []string

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey     string
	LLMModel   string
	Timeout    time.Duration
	MaxRetries int    // 429 発生時のリトライ回数（0 はリトライしない）
	BaseURL    string // 互換APIを使う場合のエンドポイント（空なら公式API）
}

// WorkerConfig はポーリングワーカーの設定
type WorkerConfig struct {
	BatchSize  int
	Cron       string
	StaleAfter time.Duration
}

// HTTPConfig はHTTPサーバーの設定
type HTTPConfig struct {
	Port int
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "campus"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "campus"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		OpenAI: OpenAIConfig{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			LLMModel:   getEnv("OPENAI_LLM_MODEL", "gpt-3.5-turbo"),
			Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 0),
			BaseURL:    getEnv("OPENAI_BASE_URL", ""),
		},
		Worker: WorkerConfig{
			BatchSize:  getEnvAsInt("WORKER_BATCH_SIZE", 10),
			Cron:       getEnv("WORKER_CRON", "@every 1m"),
			StaleAfter: getEnvAsDuration("WORKER_STALE_AFTER", 15*time.Minute),
		},
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		UniversityEmailDomains: getEnvAsList("UNIVERSITY_EMAIL_DOMAINS"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", c.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}
	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("invalid WORKER_BATCH_SIZE %d: must be positive", c.Worker.BatchSize)
	}
	if c.OpenAI.MaxRetries < 0 {
		return fmt.Errorf("invalid OPENAI_MAX_RETRIES %d: must not be negative", c.OpenAI.MaxRetries)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（例: "90s", "15m"）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数をスライスとして取得します
func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
