package aitask

import "context"

// LLMClient はチャット形式のLLMとのやり取りを抽象化するインターフェース
type LLMClient interface {
	// GenerateCompletion はメッセージ列に基づいてLLMから応答を生成する
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Role はメッセージの話者
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResponseFormatJSON は JSON オブジェクトでの応答を要求する
const ResponseFormatJSON = "json"

// Message はロール付きのメッセージ
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest はLLMへのリクエストパラメータ
type CompletionRequest struct {
	// Messages は順序付きのメッセージ列
	Messages []Message

	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int

	// ResponseFormat はレスポンスの形式 ("json" or "text")
	ResponseFormat string

	// Model はLLMモデル名 (省略時はクライアントのデフォルトモデルを使用)
	Model string
}

// CompletionResponse はLLMからのレスポンス
type CompletionResponse struct {
	// Content は生成されたテキスト
	Content string

	// TokensUsed は使用されたトークン数
	TokensUsed int

	// Model は実際に使用されたモデル名
	Model string
}
