// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeProviderError    = "PROVIDER_ERROR"
	ErrCodeInvalidRange     = "INVALID_RANGE"
	ErrCodeSyncInProgress   = "SYNC_IN_PROGRESS"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
)

// NewAuthRequiredError は認可情報未登録エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "カレンダーの認可情報が登録されていません。",
		Category: "auth",
		Action:   "先に /authorize でカレンダーへのアクセスを許可してください。",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
// パース失敗の詳細メッセージは呼び出し元にそのまま返す。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "start_time/end_timeをISO 8601形式で指定してください。",
	}
}

// NewProviderError はカレンダープロバイダー側の失敗を表すエラーを生成する。
// このエラーが返る場合、同期処理はストアへの書き込み前に中断されている。
func NewProviderError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  fmt.Sprintf("カレンダープロバイダーとの通信に失敗しました: %s", reason),
		Category: "provider",
		Action:   "しばらく待ってから再度同期を実行してください。認可が失効している場合は /authorize からやり直してください。",
	}
}

// NewInvalidRangeError は無効な日付範囲フィルタエラーを生成する。
func NewInvalidRangeError(r string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRange,
		Message:  fmt.Sprintf("無効な範囲フィルタです: %s", r),
		Category: "validation",
		Action:   "rangeには all、last7、week、month のいずれかを指定してください。",
	}
}

// NewSyncInProgressError は同期の多重実行エラーを生成する。
func NewSyncInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeSyncInProgress,
		Message:  "別の同期処理が実行中です。",
		Category: "system",
		Action:   "実行中の同期が完了してから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
