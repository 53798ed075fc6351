// Package meeting はミーティングの一覧取得・絞り込み・集計と
// 手動ミーティングの登録を提供する。
package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
	"github.com/eliaahadi/meeting-tracker/internal/repository"
)

// ListQuery はミーティング一覧の絞り込み条件。
// KeywordとCategoryはいずれも大文字小文字を区別しない部分一致で、
// 両方指定された場合は両方を満たすミーティングのみが返る。
type ListQuery struct {
	Range    model.MeetingRange
	Keyword  string
	Category string
}

// Summary はミーティング一覧の集計値。
// 所要時間は各ミーティングの終了時刻と開始時刻の差（分）で、
// 負値や不正な時刻は0分として扱われる。
type Summary struct {
	Count                  int
	TotalDurationMinutes   int
	AverageDurationMinutes int
}

// ListResult はミーティング一覧と集計のペア。
// 集計は絞り込み後の結果集合に対して行われる。
type ListResult struct {
	Meetings []*model.Meeting
	Summary  Summary
}

// Service はミーティングのユースケースを提供する。
type Service struct {
	meetingRepo repository.MeetingRepository
	sanitizer   ContentSanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// ContentSanitizer は説明文のサニタイズ処理のインターフェース。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(meetingRepo repository.MeetingRepository, sanitizer ContentSanitizer, logger *slog.Logger) *Service {
	return &Service{
		meetingRepo: meetingRepo,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
	}
}

// ListMeetings は指定条件でミーティングを取得し、集計とともに返す。
// 範囲が未指定の場合はallとして扱い、未知の範囲はINVALID_RANGEエラーを返す。
// 結果はdate降順・start_time降順で返る。
func (s *Service) ListMeetings(ctx context.Context, query ListQuery) (*ListResult, error) {
	if query.Range == "" {
		query.Range = model.RangeAll
	}

	meetings, err := s.listByRange(ctx, query.Range)
	if err != nil {
		return nil, err
	}

	meetings = filterMeetings(meetings, query.Keyword, query.Category)

	return &ListResult{
		Meetings: meetings,
		Summary:  summarize(meetings),
	}, nil
}

// listByRange は範囲種別を具体的な日付区間に解決して取得する。
func (s *Service) listByRange(ctx context.Context, r model.MeetingRange) ([]*model.Meeting, error) {
	if r == model.RangeAll {
		meetings, err := s.meetingRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("ミーティング一覧の取得に失敗しました: %w", err)
		}
		return meetings, nil
	}

	start, end, err := resolveRange(r, s.now())
	if err != nil {
		return nil, err
	}

	meetings, err := s.meetingRepo.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("ミーティング一覧の取得に失敗しました: %w", err)
	}
	return meetings, nil
}

// resolveRange は範囲種別を半開区間 [start, end) に解決する。
//   - last7: 今日を含まない直近7日間 [today-7, today)
//   - week:  今週月曜から翌週月曜まで
//   - month: 今月1日から翌月1日まで
func resolveRange(r model.MeetingRange, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch r {
	case model.RangeLast7:
		return today.AddDate(0, 0, -7), today, nil
	case model.RangeWeek:
		// time.Weekdayは日曜=0のため月曜起点に変換する
		offset := (int(today.Weekday()) + 6) % 7
		monday := today.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 7), nil
	case model.RangeMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return first, first.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, model.NewInvalidRangeError(string(r))
	}
}

// filterMeetings はキーワードとカテゴリで絞り込む。
// いずれもタイトルと説明文に対する大文字小文字を区別しない部分一致で、
// 両方指定された場合はAND条件になる。
func filterMeetings(meetings []*model.Meeting, keyword, category string) []*model.Meeting {
	if keyword == "" && category == "" {
		return meetings
	}

	keyword = strings.ToLower(keyword)
	category = strings.ToLower(category)

	filtered := make([]*model.Meeting, 0, len(meetings))
	for _, m := range meetings {
		text := strings.ToLower(m.Title + "\n" + m.Description)
		if keyword != "" && !strings.Contains(text, keyword) {
			continue
		}
		if category != "" && !strings.Contains(text, category) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// summarize は結果集合の件数・合計所要時間・平均所要時間を算出する。
// 空集合の平均は0とする。
func summarize(meetings []*model.Meeting) Summary {
	summary := Summary{Count: len(meetings)}
	for _, m := range meetings {
		summary.TotalDurationMinutes += m.DurationMinutes()
	}
	if summary.Count > 0 {
		summary.AverageDurationMinutes = summary.TotalDurationMinutes / summary.Count
	}
	return summary
}
