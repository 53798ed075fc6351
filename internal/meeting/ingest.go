package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// LogEventInput は手動ミーティング登録の入力。
// タイムスタンプはISO 8601形式（オフセットなしも可）で受け付ける。
type LogEventInput struct {
	Title        string
	Description  string
	StartTime    string
	EndTime      string
	Attendees    []string
	CalendarName string
}

// 手動登録で受け付けるタイムスタンプ形式。
var ingestTimestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// LogEvent は手動ミーティングを登録する。
// 登録されたミーティングは外部イベント識別子を持たず、
// カレンダー同期による更新・削除の対象にならない。
// 同一内容の重複登録は排除しない。
//
// 検証エラー（タイトル欠落・タイムスタンプ不正・終了が開始より前）は
// VALIDATION_FAILEDのAPIErrorを返す。
func (s *Service) LogEvent(ctx context.Context, input LogEventInput) (*model.Meeting, error) {
	if input.Title == "" {
		return nil, model.NewValidationError("titleは必須です")
	}
	if input.StartTime == "" || input.EndTime == "" {
		return nil, model.NewValidationError("start_timeとend_timeは必須です")
	}

	start, err := parseIngestTimestamp(input.StartTime)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("start_timeを解釈できません: %q", input.StartTime))
	}
	end, err := parseIngestTimestamp(input.EndTime)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("end_timeを解釈できません: %q", input.EndTime))
	}
	if end.Before(start) {
		return nil, model.NewValidationError("end_timeはstart_time以降を指定してください")
	}

	calendarName := input.CalendarName
	if calendarName == "" {
		calendarName = "manual"
	}

	now := s.now()
	meeting := &model.Meeting{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Description:  s.sanitizer.Sanitize(input.Description),
		Date:         time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:    start.Format("15:04"),
		EndTime:      end.Format("15:04"),
		Attendees:    joinAttendees(input.Attendees),
		CalendarName: calendarName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("ミーティングの登録に失敗しました: %w", err)
	}

	s.logger.Info("ミーティングを登録しました",
		slog.String("meeting_id", meeting.ID),
		slog.String("title", meeting.Title),
	)

	return meeting, nil
}

// parseIngestTimestamp は手動登録のタイムスタンプをパースする。
func parseIngestTimestamp(raw string) (time.Time, error) {
	for _, format := range ingestTimestampFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", raw)
}

// joinAttendees は参加者一覧を入力順のままカンマ区切り文字列にする。
func joinAttendees(attendees []string) string {
	return strings.Join(attendees, ", ")
}
