package aitask

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jinford/campus-ai/internal/core/document"
)

// 生成パラメータは固定値（利用者からは変更できない）
const (
	listingMaxTokens   = 150
	listingTemperature = 0.7

	moderationMaxTokens   = 200
	moderationTemperature = 0.3

	// プロンプトに埋め込む自由記述の上限トークン数
	listingDescriptionTokenBudget = 500
	moderationTextTokenBudget     = 2000
)

const listingSystemPrompt = "You are a helpful assistant that creates compelling marketplace descriptions for university students."

const moderationSystemPrompt = "You are a content moderation assistant for a university community platform. Be strict but fair."

const listingPromptTemplate = `Write a compelling description for the following marketplace listing.

Title: %s
Category: %s
Condition: %s
Price: $%s
Current Description: %s

The description must:
1. Highlight the key features and benefits
2. Mention the condition and the value for money
3. Appeal to potential buyers
4. Be appropriate for a university marketplace
5. Be 2-3 sentences long

Return only the description text without any additional formatting.`

const moderationPromptTemplate = `Review the following text for inappropriate content, hate speech, harassment, or other violations of university community guidelines:

Text: "%s"

Respond with a JSON object containing:
- "appropriate": true or false
- "reason": a brief explanation if the text is inappropriate
- "severity": "low", "medium", or "high"
- "suggestions": an array of suggested improvements, if any

Focus on: profanity, hate speech, harassment, discrimination, inappropriate sexual content, violence, spam, and academic dishonesty.`

// TokenTrimmer は自由記述をトークン数の上限で切り詰める
type TokenTrimmer interface {
	TrimToTokenLimit(text string, maxTokens int) string
}

func buildListingPrompt(listing document.Document, trimmer TokenTrimmer) string {
	return fmt.Sprintf(listingPromptTemplate,
		listing.String("title"),
		listing.String("category"),
		listing.String("condition"),
		formatPrice(listing.Data["price"]),
		trim(trimmer, listing.String("description"), listingDescriptionTokenBudget),
	)
}

func buildModerationPrompt(text string, trimmer TokenTrimmer) string {
	return fmt.Sprintf(moderationPromptTemplate, trim(trimmer, text, moderationTextTokenBudget))
}

// moderationText は種別ごとにモデレーション対象のテキストを組み立てる
func moderationText(contentType ContentType, content document.Document) string {
	if contentType == ContentTypePost {
		return content.String("title") + " " + content.String("content")
	}
	return content.String("content")
}

func trim(trimmer TokenTrimmer, text string, budget int) string {
	if trimmer == nil {
		return text
	}
	return trimmer.TrimToTokenLimit(text, budget)
}

func formatPrice(v any) string {
	switch p := v.(type) {
	case nil:
		return "0"
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(p), 'f', -1, 32)
	case int:
		return strconv.Itoa(p)
	case int64:
		return strconv.FormatInt(p, 10)
	case string:
		return strings.TrimPrefix(p, "$")
	default:
		return fmt.Sprint(p)
	}
}
