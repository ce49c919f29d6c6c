package aitask

// Outcome は処理結果の大分類
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// ErrorKind はエラー結果の種別
type ErrorKind string

const (
	// KindValidation は必須フィールドの欠落など。ストアには一切アクセスしない
	KindValidation ErrorKind = "validation"
	// KindNotFound は対象ドキュメントが存在しない
	KindNotFound ErrorKind = "not_found"
	// KindUnknownType は未知のタスク種別
	KindUnknownType ErrorKind = "unknown_type"
	// KindProcessing は対象確認後の失敗。タスクは failed に更新される
	KindProcessing ErrorKind = "processing"
	// KindInternal はハンドラ外で捕捉した予期しない失敗
	KindInternal ErrorKind = "internal"
)

// Result はタスク処理の結果を表す
type Result struct {
	Status        Outcome   `json:"status"`
	Kind          ErrorKind `json:"kind,omitempty"`
	Message       string    `json:"message,omitempty"`
	Description   string    `json:"description,omitempty"`
	Moderation    *Verdict  `json:"moderation,omitempty"`
	TaskID        string    `json:"taskId,omitempty"`
	CurrentStatus Status    `json:"currentStatus,omitempty"`
}

// OK は成功結果かどうかを返す
func (r Result) OK() bool {
	return r.Status == OutcomeSuccess
}

// unresolved はタスクが processing のまま取り残される種別かどうかを返す
// KindInternal はハンドラ内の panic を Process が回収した場合
func (r Result) unresolved() bool {
	if r.Status != OutcomeError {
		return false
	}
	switch r.Kind {
	case KindValidation, KindUnknownType, KindNotFound, KindInternal:
		return true
	default:
		return false
	}
}

func errorResult(kind ErrorKind, message string) Result {
	return Result{Status: OutcomeError, Kind: kind, Message: message}
}
