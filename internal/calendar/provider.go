// Package calendar は外部カレンダープロバイダーからのイベント取得を提供する。
// GoogleカレンダーAPIクライアントとICSフィードの2つの実装を持つ。
package calendar

import (
	"context"
	"time"
)

// Event はプロバイダーから取得した単一のイベントオカレンスを表す。
// 繰り返しイベントはプロバイダー側（またはICS実装のRRULE展開）で
// 個別オカレンスに展開済みである。
// 開始・終了はパース前の生文字列のまま保持する。タイムスタンプの
// パース失敗をどう扱うかは取り込み側（Importer）の責務とするため。
type Event struct {
	ID           string   // 外部イベント識別子。欠落している場合は空
	Title        string
	Description  string
	RawStart     string   // RFC3339。終日イベントは "2006-01-02" の日付のみ
	RawEnd       string
	Attendees    []string // プロバイダーの応答順のまま保持する
	CalendarName string
}

// Provider はカレンダーイベントの取得インターフェース。
// 指定ウィンドウ [start, end) に重なるイベントを開始時刻昇順で返す。
type Provider interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]Event, error)
}
