package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding は gpt-3.5-turbo / gpt-4 系で使われるエンコーディング
const DefaultEncoding = "cl100k_base"

// Counter は tiktoken を利用してトークン数の計測と切り詰めを行う
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// New は指定したエンコーディングの Counter を作成する
// 初回はエンコーディング定義の取得にネットワークアクセスが発生する
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &Counter{encoding: enc}, nil
}

// CountTokens はテキストのトークン数を返す
func (c *Counter) CountTokens(text string) int {
	if c == nil || c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// TrimToTokenLimit は maxTokens を超える部分を切り捨てる
func (c *Counter) TrimToTokenLimit(text string, maxTokens int) string {
	if c == nil || c.encoding == nil || maxTokens <= 0 {
		return text
	}
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.encoding.Decode(tokens[:maxTokens])
}
