// Package sync はカレンダープロバイダーからローカルストアへの
// イベント取り込み処理を提供する。
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eliaahadi/meeting-tracker/internal/calendar"
	"github.com/eliaahadi/meeting-tracker/internal/model"
	"github.com/eliaahadi/meeting-tracker/internal/repository"
)

// タイムスタンプのパースで順に試行する形式。
// プロバイダーはRFC3339を返すのが基本だが、タイムゾーンオフセットを
// 持たない値や日付のみの値（終日イベント）も受け付ける。
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

const dateOnlyFormat = "2006-01-02"

// defaultTitle はタイトルのないイベントに与える表示名。
const defaultTitle = "No Title"

// ContentSanitizer はイベント説明文のサニタイズ処理のインターフェース。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
}

// SyncMetrics は同期処理のメトリクス記録のインターフェース。
type SyncMetrics interface {
	RecordSyncSuccess()
	RecordSyncFailure(reason string)
	RecordEventParseFailure()
	RecordSyncLatency(duration time.Duration)
	RecordMeetingsUpserted(count int)
	RecordMeetingsDeleted(count int)
}

// Importer はカレンダーイベントをローカルストアへ取り込む。
//
// 取り込みは照合キー（外部イベント識別子）によるUPSERTと、
// ウィンドウ内で供給元から消えたイベントのパージで構成され、
// すべての変更は単一トランザクションで適用される。
// 同期は直列化されており、実行中に再度呼び出された場合は
// SYNC_IN_PROGRESSエラーを返す。
type Importer struct {
	provider    calendar.Provider
	meetingRepo repository.MeetingRepository
	sanitizer   ContentSanitizer
	metrics     SyncMetrics
	logger      *slog.Logger
	windowDays  int
	timeout     time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewImporter はImporterの新しいインスタンスを生成する。
// windowDaysが0以下の場合はデフォルト値30を使用する。
func NewImporter(
	provider calendar.Provider,
	meetingRepo repository.MeetingRepository,
	sanitizer ContentSanitizer,
	m SyncMetrics,
	logger *slog.Logger,
	windowDays int,
	timeout time.Duration,
) *Importer {
	if windowDays <= 0 {
		windowDays = 30
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Importer{
		provider:    provider,
		meetingRepo: meetingRepo,
		sanitizer:   sanitizer,
		metrics:     m,
		logger:      logger,
		windowDays:  windowDays,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Window は今回の同期が対象とする半開区間 [start, end) を返す。
// 今日の0時を基準に前後windowDays日のローリングウィンドウで、
// 過去のミーティングの変更・キャンセルも照合対象に含める。
func (i *Importer) Window() (time.Time, time.Time) {
	now := i.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -i.windowDays), today.AddDate(0, 0, i.windowDays)
}

// Sync はプロバイダーからイベントを取得し、ローカルストアと照合して
// 挿入・更新・削除をアトミックに適用する。
//
// プロバイダーレベルの失敗（通信断・非2xx応答）ではストアへの書き込み前に
// 中断してエラーを返す。個別イベントのパース失敗は該当イベントのスキップに
// とどめ、SyncReport.Errorsに記録して処理を継続する。
func (i *Importer) Sync(ctx context.Context) (*model.SyncReport, error) {
	if !i.mu.TryLock() {
		return nil, model.NewSyncInProgressError()
	}
	defer i.mu.Unlock()

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	windowStart, windowEnd := i.Window()

	events, err := i.provider.ListEvents(ctx, windowStart, windowEnd)
	if err != nil {
		i.metrics.RecordSyncFailure("provider")
		i.logger.Error("カレンダーイベントの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		if apiErr, ok := err.(*model.APIError); ok {
			return nil, apiErr
		}
		return nil, model.NewProviderError(err.Error())
	}

	existing, err := i.meetingRepo.ListSyncedInRange(ctx, windowStart, windowEnd)
	if err != nil {
		i.metrics.RecordSyncFailure("store")
		return nil, fmt.Errorf("同期対象ミーティングの取得に失敗しました: %w", err)
	}

	existingByEventID := make(map[string]*model.Meeting, len(existing))
	for _, m := range existing {
		existingByEventID[m.EventID] = m
	}

	report := &model.SyncReport{}
	batch := repository.ReconciliationBatch{}
	seen := make(map[string]bool, len(events))
	syncedAt := i.now()

	for _, ev := range events {
		if ev.ID == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("イベント %q に識別子がないためスキップしました", ev.Title))
			i.metrics.RecordEventParseFailure()
			continue
		}
		if seen[ev.ID] {
			// 同一識別子の重複オカレンスは先勝ち
			continue
		}
		// パースの成否にかかわらず供給元に存在したイベントとして記録する。
		// パース失敗をパージ対象にすると一時的な不正値で履歴が消えるため。
		seen[ev.ID] = true

		incoming, err := i.mapEvent(ev, syncedAt)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("イベント %q のパースに失敗しました: %v", ev.ID, err))
			i.metrics.RecordEventParseFailure()
			i.logger.Warn("イベントのパースに失敗したためスキップします",
				slog.String("event_id", ev.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		current, ok := existingByEventID[ev.ID]
		if !ok {
			// ウィンドウ外に既存行がある可能性（日付が変わったイベント）
			current, err = i.meetingRepo.FindByEventID(ctx, ev.ID)
			if err != nil {
				i.metrics.RecordSyncFailure("store")
				return nil, fmt.Errorf("既存ミーティングの検索に失敗しました: %w", err)
			}
		}

		if current == nil {
			batch.Inserts = append(batch.Inserts, incoming)
			report.Added++
			continue
		}

		if current.SameContent(incoming) {
			continue
		}

		incoming.ID = current.ID
		incoming.CreatedAt = current.CreatedAt
		batch.Updates = append(batch.Updates, incoming)
		report.Updated++
	}

	// ウィンドウ内の同期済みミーティングのうち、今回の供給元に
	// 現れなかったものをパージする。ウィンドウ外と直接登録分は対象外。
	for eventID := range existingByEventID {
		if !seen[eventID] {
			batch.DeleteEventIDs = append(batch.DeleteEventIDs, eventID)
			report.Deleted++
		}
	}

	if err := i.meetingRepo.ApplyReconciliation(ctx, batch); err != nil {
		i.metrics.RecordSyncFailure("store")
		return nil, fmt.Errorf("同期バッチの適用に失敗しました: %w", err)
	}

	duration := time.Since(start)
	i.metrics.RecordSyncSuccess()
	i.metrics.RecordSyncLatency(duration)
	i.metrics.RecordMeetingsUpserted(report.Added + report.Updated)
	i.metrics.RecordMeetingsDeleted(report.Deleted)

	i.logger.Info("カレンダー同期が完了しました",
		slog.Int("added", report.Added),
		slog.Int("updated", report.Updated),
		slog.Int("deleted", report.Deleted),
		slog.Int("errors", len(report.Errors)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return report, nil
}

// mapEvent はプロバイダーのイベントをミーティングに変換する。
// タイムスタンプがどの形式でもパースできない場合はエラーを返す。
func (i *Importer) mapEvent(ev calendar.Event, syncedAt time.Time) (*model.Meeting, error) {
	title := ev.Title
	if title == "" {
		title = defaultTitle
	}

	meeting := &model.Meeting{
		ID:           uuid.NewString(),
		EventID:      ev.ID,
		Title:        title,
		Description:  i.sanitizer.Sanitize(ev.Description),
		Attendees:    joinAttendees(ev.Attendees),
		CalendarName: ev.CalendarName,
		CreatedAt:    syncedAt,
		UpdatedAt:    syncedAt,
	}

	startDate, startClock, allDayStart, err := parseTimestamp(ev.RawStart)
	if err != nil {
		return nil, fmt.Errorf("開始時刻が不正です: %w", err)
	}
	_, endClock, allDayEnd, err := parseTimestamp(ev.RawEnd)
	if err != nil {
		return nil, fmt.Errorf("終了時刻が不正です: %w", err)
	}

	// 深夜越えイベントは開始日に帰属する
	meeting.Date = startDate
	meeting.StartTime = startClock
	meeting.EndTime = endClock

	// 終日イベントは 00:00〜23:59 の1日分として扱う
	if allDayStart {
		meeting.StartTime = "00:00"
	}
	if allDayEnd || allDayStart {
		meeting.EndTime = "23:59"
	}

	return meeting, nil
}

// parseTimestamp は生のタイムスタンプ文字列をパースし、
// 属する暦日（0時固定）と"HH:MM"形式の時刻、終日イベントかを返す。
func parseTimestamp(raw string) (time.Time, string, bool, error) {
	if t, err := time.Parse(dateOnlyFormat, raw); err == nil {
		return t, "00:00", true, nil
	}
	for _, format := range timestampFormats {
		t, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return date, t.Format("15:04"), false, nil
	}
	return time.Time{}, "", false, fmt.Errorf("unsupported timestamp format: %q", raw)
}

// joinAttendees は参加者一覧を応答順のままカンマ区切り文字列にする。
func joinAttendees(attendees []string) string {
	return strings.Join(attendees, ", ")
}
