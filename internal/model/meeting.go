// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Meeting はローカルに保存された単一のカレンダーイベントを表す。
// EventIDは外部カレンダー由来のイベントのみ保持し、同期時の照合キーとなる。
// 直接登録されたミーティングはEventIDが空のままで、同期による更新対象にならない。
type Meeting struct {
	ID           string
	EventID      string // 外部イベント識別子。直接登録の場合は空
	Title        string
	Description  string
	Date         time.Time // 開始時刻の属する暦日（深夜越えイベントは開始日に帰属）
	StartTime    string    // "HH:MM" 形式の時刻
	EndTime      string    // "HH:MM" 形式の時刻
	Attendees    string    // プロバイダーの応答順を保持したカンマ区切り文字列
	CalendarName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SameContent は同期対象フィールドの構造的等価性を判定する。
// 照合キー（EventID）を除くマッピング対象フィールドがすべて一致する場合にtrueを返す。
// 変更がない場合の無駄な書き込みを避けるために使用する。
func (m *Meeting) SameContent(other *Meeting) bool {
	return m.Title == other.Title &&
		m.Description == other.Description &&
		m.Date.Equal(other.Date) &&
		m.StartTime == other.StartTime &&
		m.EndTime == other.EndTime &&
		m.Attendees == other.Attendees &&
		m.CalendarName == other.CalendarName
}

// DurationMinutes はミーティングの所要時間（分）を返す。
// 同一日内のEndTime - StartTimeで算出し、負値は0に丸める。
// 時刻がパースできない場合も0を返す。
func (m *Meeting) DurationMinutes() int {
	start, err := ParseClock(m.StartTime)
	if err != nil {
		return 0
	}
	end, err := ParseClock(m.EndTime)
	if err != nil {
		return 0
	}
	if end < start {
		return 0
	}
	return end - start
}

// ParseClock は"HH:MM"形式の時刻文字列を0時からの経過分に変換する。
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock out of range: %q", s)
	}
	return hour*60 + minute, nil
}

// MeetingRange はミーティング一覧の日付範囲フィルタ種別を表す。
// すべての範囲は半開区間 [start, end) として解釈される。
type MeetingRange string

const (
	// RangeAll は日付フィルタなしを表す。
	RangeAll MeetingRange = "all"
	// RangeLast7 は今日を含まない直近7日間 [today-7, today) を表す。
	RangeLast7 MeetingRange = "last7"
	// RangeWeek は今週月曜から翌週月曜まで [monday, monday+7) を表す。
	RangeWeek MeetingRange = "week"
	// RangeMonth は今月1日から翌月1日まで [first, nextFirst) を表す。
	RangeMonth MeetingRange = "month"
)

// SyncReport は1回の同期処理の結果集計を表す。
// Errorsには個別イベントの照合警告（パース失敗等）が蓄積される。
// プロバイダーレベルの失敗はSyncReportではなくエラーとして報告される。
type SyncReport struct {
	Added   int
	Updated int
	Deleted int
	Errors  []string
}

// Summary は同期結果の平文サマリーを返す。
func (r *SyncReport) Summary() string {
	return fmt.Sprintf("%d added, %d updated, %d deleted", r.Added, r.Updated, r.Deleted)
}
