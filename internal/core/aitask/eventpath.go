package aitask

import (
	"errors"
	"strings"
)

// ErrMissingDocumentPath はイベントからドキュメントパスを特定できない場合のエラー
var ErrMissingDocumentPath = errors.New("missing document path")

const documentsMarker = "/documents/"

// Event はドキュメント作成トリガーで届くイベントのうち、パス解決に使う部分
type Event struct {
	// Resource はコンテキストのリソース名
	// 例: "projects/p/databases/(default)/documents/aiTasks/t1"
	Resource string

	// ValueName はイベント本体の value.name
	// 完全なリソース名、または "aiTasks/t1" のような相対パス
	ValueName string

	// Subject は CloudEvents 形式の subject
	// 例: "documents/aiTasks/t1"
	Subject string
}

// ResolveDocumentPath はイベントからドキュメントパス（collection/id）を求める
//
// 次の順に試す:
//  1. Resource に "/documents/" が含まれていればその後ろ
//  2. ValueName（完全なリソース名ならば "/documents/" の後ろ、そうでなければそのまま）
//  3. Subject の "documents/" の後ろ
func ResolveDocumentPath(ev Event) (string, error) {
	if path, ok := afterDocuments(ev.Resource); ok {
		return path, nil
	}

	if name := strings.TrimSpace(ev.ValueName); name != "" {
		if strings.HasPrefix(name, "projects/") {
			if path, ok := afterDocuments(name); ok {
				return path, nil
			}
		} else {
			return strings.Trim(name, "/"), nil
		}
	}

	if subject := strings.TrimSpace(ev.Subject); subject != "" {
		if path, ok := strings.CutPrefix(strings.TrimPrefix(subject, "/"), "documents/"); ok && path != "" {
			return path, nil
		}
	}

	return "", ErrMissingDocumentPath
}

func afterDocuments(name string) (string, bool) {
	_, path, ok := strings.Cut(name, documentsMarker)
	if !ok || path == "" {
		return "", false
	}
	return path, true
}
