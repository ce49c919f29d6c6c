package aitask

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/jinford/campus-ai/internal/core/document"
)

// Severity は違反の深刻度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Verdict はLLMが返すモデレーション判定
type Verdict struct {
	Appropriate bool     `json:"appropriate"`
	Reason      string   `json:"reason"`
	Severity    Severity `json:"severity"`
	Suggestions []string `json:"suggestions"`
}

// FallbackVerdict は判定を解析できなかった場合に使う判定
//
// 解析失敗時は「問題なし」として扱う（フェイルオープン）。
func FallbackVerdict() Verdict {
	return Verdict{
		Appropriate: true,
		Reason:      "Unable to parse moderation result",
		Severity:    SeverityLow,
		Suggestions: []string{},
	}
}

var (
	errNotJSONObject      = errors.New("moderation result is not a JSON object")
	errInvalidAppropriate = errors.New("moderation result has a non-boolean appropriate field")
)

// ParseVerdict はLLMの応答テキストを判定に変換する
//
// Markdown のコードフェンスで囲まれた JSON も受け付ける。
// appropriate が欠けている場合は true、未知の severity は low として扱う。
// reason / suggestions の型が想定と異なっても判定自体は捨てず、文字列として読める部分だけを使う。
func ParseVerdict(text string) (Verdict, error) {
	body := stripCodeFence(strings.TrimSpace(text))
	if !strings.HasPrefix(body, "{") {
		return Verdict{}, errNotJSONObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Verdict{}, err
	}

	v := Verdict{Appropriate: true}
	if msg, ok := raw["appropriate"]; ok && !isNull(msg) {
		if err := json.Unmarshal(msg, &v.Appropriate); err != nil {
			return Verdict{}, errInvalidAppropriate
		}
	}
	v.Reason = coerceText(raw["reason"])
	v.Severity = normalizeSeverity(coerceText(raw["severity"]))
	v.Suggestions = coerceStrings(raw["suggestions"])
	return v, nil
}

func isNull(msg json.RawMessage) bool {
	return len(msg) == 0 || string(msg) == "null"
}

// coerceText は文字列ならそのまま、文字列の配列なら連結して返す。それ以外は空文字列
func coerceText(msg json.RawMessage) string {
	if isNull(msg) {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	return strings.Join(coerceStrings(msg), "; ")
}

// coerceStrings は配列中の文字列要素だけを返す。単独の文字列は1要素として扱う
func coerceStrings(msg json.RawMessage) []string {
	out := []string{}
	if isNull(msg) {
		return out
	}

	var single string
	if err := json.Unmarshal(msg, &single); err == nil {
		if single != "" {
			out = append(out, single)
		}
		return out
	}

	var items []any
	if err := json.Unmarshal(msg, &items); err != nil {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Fields はドキュメント保存用の表現を返す
func (v Verdict) Fields() document.Fields {
	suggestions := v.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return document.Fields{
		"appropriate": v.Appropriate,
		"reason":      v.Reason,
		"severity":    string(v.Severity),
		"suggestions": suggestions,
	}
}

func normalizeSeverity(s string) Severity {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return sev
	default:
		return SeverityLow
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// 言語指定（```json）を取り除く
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
