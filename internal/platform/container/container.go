package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/campus-ai/internal/core/account"
	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/core/document"
	"github.com/jinford/campus-ai/internal/core/marketplace"
	"github.com/jinford/campus-ai/internal/infra/memstore"
	"github.com/jinford/campus-ai/internal/infra/openai"
	"github.com/jinford/campus-ai/internal/infra/postgres"
	"github.com/jinford/campus-ai/internal/infra/tokenizer"
	"github.com/jinford/campus-ai/internal/platform/config"
	"github.com/jinford/campus-ai/internal/platform/database"
)

// Container はアプリケーションの依存関係を保持する。
type Container struct {
	Store       document.Store
	Processor   *aitask.Processor
	Poller      *aitask.Poller
	Trigger     *aitask.Trigger
	Marketplace *marketplace.Service
	Account     *account.Service

	database *database.Database
}

type containerOptions struct {
	logger    *slog.Logger
	store     document.Store
	llmClient aitask.LLMClient
	trimmer   aitask.TokenTrimmer
	now       func() time.Time
}

// ContainerOption は Container 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerStore はドキュメントストアを差し替える（STORE_DRIVER より優先）
func WithContainerStore(store document.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client aitask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenTrimmer はプロンプトの切り詰め処理を差し替える
func WithContainerTokenTrimmer(trimmer aitask.TokenTrimmer) ContainerOption {
	return func(opts *containerOptions) {
		opts.trimmer = trimmer
	}
}

// WithContainerClock は時刻の取得元を差し替える
func WithContainerClock(now func() time.Time) ContainerOption {
	return func(opts *containerOptions) {
		opts.now = now
	}
}

// NewContainer は設定からコンテナを生成する。
// STORE_DRIVER=postgres の場合はデータベースに接続し、テーブルを作成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	var db *database.Database
	if options.store == nil {
		switch cfg.StoreDriver {
		case config.StoreDriverMemory:
			options.logger.Warn("メモリストアを使用します。プロセス終了時にデータは失われます")
			options.store = memstore.New()
		default:
			var err error
			db, err = database.New(ctx, database.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
			}
			if err := postgres.EnsureSchema(ctx, db.Pool); err != nil {
				db.Close()
				return nil, fmt.Errorf("スキーマ作成に失敗しました: %w", err)
			}
			options.store = postgres.NewDocumentStore(db.Pool)
		}
	}

	c, err := build(cfg, db, options)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	return c, nil
}

func build(cfg *config.Config, db *database.Database, options containerOptions) (*Container, error) {
	logger := options.logger

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		openaiClient, err := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.LLMModel),
			openai.WithTimeout(cfg.OpenAI.Timeout),
			openai.WithMaxRetries(cfg.OpenAI.MaxRetries),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = openaiClient
	}

	// TokenTrimmer (tiktoken)。取得できない場合は切り詰めずに続行する
	trimmer := options.trimmer
	if trimmer == nil {
		counter, err := tokenizer.New(tokenizer.DefaultEncoding)
		if err != nil {
			logger.Warn("トークナイザーを読み込めないため、プロンプトの切り詰めを無効にします", "error", err)
		} else {
			trimmer = counter
		}
	}

	processorOpts := []aitask.ProcessorOption{aitask.WithProcessorLogger(logger)}
	if trimmer != nil {
		processorOpts = append(processorOpts, aitask.WithTokenTrimmer(trimmer))
	}
	if options.now != nil {
		processorOpts = append(processorOpts, aitask.WithClock(options.now))
	}
	processor := aitask.NewProcessor(options.store, llmClient, processorOpts...)

	poller := aitask.NewPoller(processor, options.store,
		aitask.WithPollerLogger(logger),
		aitask.WithBatchSize(cfg.Worker.BatchSize),
	)
	trigger := aitask.NewTrigger(processor, options.store, aitask.WithTriggerLogger(logger))

	marketplaceService := marketplace.NewService(options.store,
		marketplace.WithLogger(logger),
		marketplace.WithClock(options.now),
	)
	accountService := account.NewService(options.store,
		account.WithLogger(logger),
		account.WithClock(options.now),
		account.WithUniversityDomains(cfg.UniversityEmailDomains),
	)

	return &Container{
		Store:       options.store,
		Processor:   processor,
		Poller:      poller,
		Trigger:     trigger,
		Marketplace: marketplaceService,
		Account:     accountService,
		database:    db,
	}, nil
}

// Close は内部リソースを解放する。
func (c *Container) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Database はデータベースを返す。メモリストア使用時は nil。
func (c *Container) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}
