package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinford/campus-ai/internal/core/account"
	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/core/marketplace"
)

// TaskTrigger はイベントが指すAIタスクを1件処理する
type TaskTrigger interface {
	Handle(ctx context.Context, ev aitask.Event) aitask.Result
}

// BatchRunner は pending のAIタスクを1バッチ処理する
type BatchRunner interface {
	RunBatch(ctx context.Context) (aitask.BatchReport, error)
}

// SellerContacter は出品者への問い合わせを行う
type SellerContacter interface {
	ContactSeller(ctx context.Context, in marketplace.ContactSellerInput) (marketplace.ContactSellerOutput, error)
}

// ProfileBootstrapper は新規ユーザーのプロフィールを作成する
type ProfileBootstrapper interface {
	BootstrapProfile(ctx context.Context, user account.AuthUser) (account.BootstrapResult, error)
}

// Services は HTTP ハンドラが呼び出すサービス群
type Services struct {
	Trigger     TaskTrigger
	Poller      BatchRunner
	Marketplace SellerContacter
	Account     ProfileBootstrapper
}

// Server は AI タスクとコールバック用の HTTP サーバー
type Server struct {
	router   *gin.Engine
	services Services
	logger   *slog.Logger
	now      func() time.Time

	httpServer *http.Server
}

// Option は Server 構築時のオプション
type Option func(*Server)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer は新しい Server を作成し、ルーティングを設定する
func NewServer(services Services, opts ...Option) *Server {
	s := &Server{
		router:   gin.New(),
		services: services,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	useJSONFieldNames()
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("リクエスト処理中に panic が発生しました", "path", c.Request.URL.Path, "panic", recovered)
		writeError(c, http.StatusInternalServerError, codeInternal, "An unexpected error occurred")
	}))
	s.router.Use(s.requestLogger())
}

// requestLogger はアクセスログを slog で出力するミドルウェア
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()

		s.logger.Info("HTTPリクエスト",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", s.now().Sub(start),
			"clientIP", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/v1")
	{
		tasks := v1.Group("/ai-tasks")
		tasks.POST("/events", s.handleTaskEvent)
		tasks.POST("/run", s.handleRunBatch)

		v1.POST("/callable/contactSeller", s.handleContactSeller)
		v1.POST("/auth/users", s.handleUserCreated)
	}
}

// Start は addr で待ち受けを開始し、ctx がキャンセルされるとグレースフルに停止する
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗しました: %w", err)
	}
	return nil
}
