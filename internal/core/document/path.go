package document

import (
	"fmt"
	"strings"
)

// Join はコレクション名とIDからドキュメントパスを組み立てる
func Join(collection, id string) string {
	return collection + "/" + id
}

// ParsePath は "collection/id" 形式のパスを分解する
//
// サブコレクション（"conversations/c1/messages/m1"）の場合、コレクションは
// 最後のIDを除いた部分全体（"conversations/c1/messages"）になる。
func ParsePath(path string) (collection, id string, err error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("empty document path")
	}

	segments := strings.Split(trimmed, "/")
	if len(segments)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q: expected an even number of segments", path)
	}
	for _, s := range segments {
		if s == "" {
			return "", "", fmt.Errorf("invalid document path %q: empty segment", path)
		}
	}

	idx := strings.LastIndex(trimmed, "/")
	return trimmed[:idx], trimmed[idx+1:], nil
}
