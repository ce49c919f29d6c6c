package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// CollectionUsers はユーザープロフィールのコレクション名
const CollectionUsers = "users"

// RoleStudent は新規ユーザーに付与されるロール
const RoleStudent = "student"

// ErrInvalidArgument は認証ユーザー情報が不正な場合のエラー
var ErrInvalidArgument = errors.New("invalid argument")

// AuthUser は認証基盤から渡される新規ユーザー
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// BootstrapResult はプロフィール作成の結果
type BootstrapResult struct {
	UID         string `json:"uid"`
	Created     bool   `json:"created"`
	UniVerified bool   `json:"uniVerified"`
}

// Service は新規ユーザーのプロフィールを初期化する
type Service struct {
	store   document.Store
	domains []string
	logger  *slog.Logger
	now     func() time.Time
}

// Option は Service 構築時のオプション
type Option func(*Service)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock は時刻の取得元を差し替える
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUniversityDomains は大学メールとして扱うドメインを指定する
func WithUniversityDomains(domains []string) Option {
	return func(s *Service) {
		s.domains = s.domains[:0]
		for _, d := range domains {
			d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "@."))
			if d != "" {
				s.domains = append(s.domains, d)
			}
		}
	}
}

// NewService は新しい Service を作成する
func NewService(store document.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BootstrapProfile は users/<uid> を作成する
// 既にプロフィールがある場合は変更せず Created=false を返す
func (s *Service) BootstrapProfile(ctx context.Context, user AuthUser) (BootstrapResult, error) {
	if strings.TrimSpace(user.UID) == "" {
		return BootstrapResult{}, fmt.Errorf("%w: uid is required", ErrInvalidArgument)
	}

	verified := s.IsUniversityEmail(user.Email)
	err := s.store.Create(ctx, CollectionUsers, user.UID, document.Fields{
		"uid":         user.UID,
		"fullName":    user.DisplayName,
		"email":       user.Email,
		"role":        RoleStudent,
		"uniVerified": verified,
		"createdAt":   s.now(),
	})
	if errors.Is(err, document.ErrAlreadyExists) {
		s.logger.Info("プロフィールは作成済みです", "uid", user.UID)
		return BootstrapResult{UID: user.UID}, nil
	}
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("failed to create profile %s: %w", user.UID, err)
	}

	s.logger.Info("プロフィールを作成しました", "uid", user.UID, "uniVerified", verified)
	return BootstrapResult{UID: user.UID, Created: true, UniVerified: verified}, nil
}

// IsUniversityEmail はメールアドレスが大学ドメイン（またはそのサブドメイン）かを判定する
func (s *Service) IsUniversityEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range s.domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
