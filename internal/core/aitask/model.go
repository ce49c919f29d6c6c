package aitask

import (
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// コレクション名
const (
	CollectionTasks    = "aiTasks"
	CollectionListings = "listings"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
)

// Type はタスク種別を表す
type Type string

const (
	TypeGenerateListingDescription Type = "generateListingDescription"
	TypeModerateContent            Type = "moderateContent"
)

// Status はタスクのライフサイクル状態を表す
// pending → processing → completed | failed の順にのみ遷移する
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ContentType はモデレーション対象の種別
type ContentType string

const (
	ContentTypePost    ContentType = "post"
	ContentTypeComment ContentType = "comment"
)

// Task は aiTasks コレクションの1レコードを表す
type Task struct {
	ID          string
	Type        Type
	Status      Status
	ListingID   string
	ContentID   string
	ContentType ContentType
	StartedAt   *time.Time
}

// TaskFromDocument はドキュメントからタスクを組み立てる
func TaskFromDocument(doc document.Document) Task {
	task := Task{
		ID:          doc.ID,
		Type:        Type(doc.String("type")),
		Status:      Status(doc.String("status")),
		ListingID:   doc.String("listingId"),
		ContentID:   doc.String("contentId"),
		ContentType: ContentType(doc.String("contentType")),
	}
	if v, ok := doc.Value("startedAt"); ok {
		if t, ok := parseTime(v); ok {
			task.StartedAt = &t
		}
	}
	return task
}

// parseTime はストア実装ごとに異なる時刻表現（time.Time / RFC3339文字列）を解釈する
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
