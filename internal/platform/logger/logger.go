package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string    // "json" or "text"
	Output io.Writer // 省略時は標準出力
}

// DefaultConfig はデフォルトのロガー設定
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// ParseConfig は LOG_LEVEL / LOG_FORMAT の値からロガー設定を作成する
// 解釈できない値はデフォルトのままにする
func ParseConfig(level, format string) Config {
	cfg := DefaultConfig()

	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(level))); err == nil {
		cfg.Level = lv
	}

	if f := strings.ToLower(strings.TrimSpace(format)); f == "text" || f == "json" {
		cfg.Format = f
	}
	return cfg
}

// New は新しいロガーを作成し、デフォルトロガーとして設定します
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default: // "json"
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
