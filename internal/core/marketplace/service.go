package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

var (
	// ErrUnauthenticated は呼び出し元のユーザーが特定できない場合のエラー
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidArgument は入力が不正な場合のエラー
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound は対象の出品が存在しない場合のエラー
	ErrNotFound = errors.New("listing not found")
)

// コレクション名
const (
	CollectionListings      = "listings"
	CollectionConversations = "conversations"
	CollectionNotifications = "notifications"
)

// DefaultMessage はメッセージ未入力時に送る本文
const DefaultMessage = "I'm interested in this item!"

const notificationTypeBuyRequest = "buy_request"

// ContactSellerInput は出品者への問い合わせ内容
type ContactSellerInput struct {
	BuyerID   string
	ListingID string
	Message   string
}

// ContactSellerOutput は問い合わせの結果
type ContactSellerOutput struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
}

// Service はマーケットプレイスの購入者向け操作を提供する
type Service struct {
	store  document.Store
	logger *slog.Logger
	now    func() time.Time
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

// ConversationID は出品・購入者・出品者の組から会話IDを求める
func ConversationID(listingID, buyerID, sellerID string) string {
	return fmt.Sprintf("listing_%s_%s_%s", listingID, buyerID, sellerID)
}

// MessagesCollection は会話に属するメッセージのコレクション名を返す
func MessagesCollection(conversationID string) string {
	return document.Join(CollectionConversations, conversationID) + "/messages"
}

// ContactSeller は出品者との会話を開始（または継続）し、出品者に通知する
//
// 同じ出品・購入者・出品者の組では同じ会話が再利用される。
func (s *Service) ContactSeller(ctx context.Context, in ContactSellerInput) (ContactSellerOutput, error) {
	if in.BuyerID == "" {
		return ContactSellerOutput{}, ErrUnauthenticated
	}
	if in.ListingID == "" {
		return ContactSellerOutput{}, fmt.Errorf("%w: listingId is required", ErrInvalidArgument)
	}

	listing, err := s.store.Get(ctx, CollectionListings, in.ListingID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return ContactSellerOutput{}, ErrNotFound
		}
		return ContactSellerOutput{}, fmt.Errorf("failed to get listing: %w", err)
	}

	sellerID := listing.String("sellerId")
	if sellerID == "" {
		return ContactSellerOutput{}, fmt.Errorf("%w: listing %s has no seller", ErrInvalidArgument, in.ListingID)
	}

	text := strings.TrimSpace(in.Message)
	if text == "" {
		text = DefaultMessage
	}

	now := s.now()
	conversationID := ConversationID(in.ListingID, in.BuyerID, sellerID)

	created, err := s.openConversation(ctx, conversationID, listing, in.BuyerID, sellerID, text, now)
	if err != nil {
		return ContactSellerOutput{}, err
	}

	if _, err := s.store.Add(ctx, MessagesCollection(conversationID), document.Fields{
		"conversationId": conversationID,
		"senderId":       in.BuyerID,
		"text":           text,
		"type":           "text",
		"createdAt":      now,
		"read":           false,
	}); err != nil {
		return ContactSellerOutput{}, fmt.Errorf("failed to add message: %w", err)
	}

	if !created {
		if err := s.store.Update(ctx, CollectionConversations, conversationID, document.Fields{
			"lastMessage":         text,
			"lastMessageAt":       now,
			"lastMessageSenderId": in.BuyerID,
			"updatedAt":           now,
		}); err != nil {
			return ContactSellerOutput{}, fmt.Errorf("failed to update conversation: %w", err)
		}
	}

	if _, err := s.store.Add(ctx, CollectionNotifications, document.Fields{
		"toUserId":       sellerID,
		"fromUserId":     in.BuyerID,
		"type":           notificationTypeBuyRequest,
		"message":        text,
		"item":           listing.String("title"),
		"itemId":         in.ListingID,
		"conversationId": conversationID,
		"createdAt":      now,
		"read":           false,
	}); err != nil {
		return ContactSellerOutput{}, fmt.Errorf("failed to add notification: %w", err)
	}

	s.logger.Info("出品者に問い合わせを送信しました",
		"listingID", in.ListingID, "conversationID", conversationID, "newConversation", created)

	return ContactSellerOutput{Success: true, ConversationID: conversationID}, nil
}

// openConversation は会話がなければ作成し、作成したかどうかを返す
func (s *Service) openConversation(ctx context.Context, conversationID string, listing document.Document, buyerID, sellerID, text string, now time.Time) (bool, error) {
	err := s.store.Create(ctx, CollectionConversations, conversationID, document.Fields{
		"id":                  conversationID,
		"itemType":            "listing",
		"itemId":              listing.ID,
		"itemTitle":           listing.String("title"),
		"itemImage":           firstImage(listing),
		"participants":        []string{buyerID, sellerID},
		"createdAt":           now,
		"updatedAt":           now,
		"lastMessage":         text,
		"lastMessageAt":       now,
		"lastMessageSenderId": buyerID,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, document.ErrAlreadyExists):
		return false, nil
	default:
		return false, fmt.Errorf("failed to create conversation: %w", err)
	}
}

// firstImage は出品の先頭画像を返す。画像がなければ nil
func firstImage(listing document.Document) any {
	v, ok := listing.Value("images")
	if !ok {
		return nil
	}
	switch images := v.(type) {
	case []string:
		if len(images) > 0 && images[0] != "" {
			return images[0]
		}
	case []any:
		if len(images) > 0 {
			if s, ok := images[0].(string); ok && s != "" {
				return s
			}
		}
	}
	return nil
}
