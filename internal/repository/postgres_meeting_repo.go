package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
	"github.com/lib/pq"
)

// PostgresMeetingRepo はPostgreSQLを使用したミーティングリポジトリ。
type PostgresMeetingRepo struct {
	db *sql.DB
}

// NewPostgresMeetingRepo はPostgresMeetingRepoを生成する。
func NewPostgresMeetingRepo(db *sql.DB) *PostgresMeetingRepo {
	return &PostgresMeetingRepo{db: db}
}

// meetingColumns はSELECT句で使用するカラム一覧。
const meetingColumns = `id, event_id, title, description, date, start_time, end_time,
       attendees, calendar_name, created_at, updated_at`

// scanMeeting は1行分のミーティングを読み取る。
func scanMeeting(scan func(dest ...interface{}) error) (*model.Meeting, error) {
	m := &model.Meeting{}
	var eventID, description sql.NullString
	var startTime, endTime string

	if err := scan(
		&m.ID, &eventID, &m.Title, &description, &m.Date, &startTime, &endTime,
		&m.Attendees, &m.CalendarName, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.EventID = eventID.String
	m.Description = description.String
	m.StartTime = normalizeClock(startTime)
	m.EndTime = normalizeClock(endTime)

	return m, nil
}

// normalizeClock はTIME型のスキャン結果（"15:04:05"）を"15:04"形式に丸める。
func normalizeClock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// FindByEventID は外部イベント識別子でミーティングを検索する。見つからない場合はnilを返す。
func (r *PostgresMeetingRepo) FindByEventID(ctx context.Context, eventID string) (*model.Meeting, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE event_id = $1`,
		eventID,
	)

	m, err := scanMeeting(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event_idによるミーティングの検索に失敗しました: %w", err)
	}

	return m, nil
}

// ListAll は全ミーティングをdate降順・start_time降順で返す。
func (r *PostgresMeetingRepo) ListAll(ctx context.Context) ([]*model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 ORDER BY date DESC, start_time DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ミーティング一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// ListByDateRange は半開区間 [start, end) に含まれるミーティングを
// date降順・start_time降順で返す。
func (r *PostgresMeetingRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]*model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE date >= $1 AND date < $2
		 ORDER BY date DESC, start_time DESC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("日付範囲によるミーティング一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// ListSyncedInRange はevent_idを持ち、dateが半開区間 [start, end) に含まれる
// ミーティングを返す。同期時のパージ候補の列挙に使用する。
func (r *PostgresMeetingRepo) ListSyncedInRange(ctx context.Context, start, end time.Time) ([]*model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		 WHERE event_id IS NOT NULL AND date >= $1 AND date < $2
		 ORDER BY date DESC, start_time DESC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("同期済みミーティング一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// collectMeetings はクエリ結果の全行を読み取る。
func collectMeetings(rows *sql.Rows) ([]*model.Meeting, error) {
	var meetings []*model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ミーティング行の読み取りに失敗しました: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ミーティング一覧の走査に失敗しました: %w", err)
	}

	return meetings, nil
}

// Create はミーティングを1件作成する。
func (r *PostgresMeetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	_, err := r.db.ExecContext(ctx, insertMeetingQuery, insertMeetingArgs(meeting)...)
	if err != nil {
		return fmt.Errorf("ミーティングの作成に失敗しました: %w", err)
	}
	return nil
}

const insertMeetingQuery = `INSERT INTO meetings
    (id, event_id, title, description, date, start_time, end_time,
     attendees, calendar_name, created_at, updated_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func insertMeetingArgs(m *model.Meeting) []interface{} {
	return []interface{}{
		m.ID, nullString(m.EventID), m.Title, nullString(m.Description),
		m.Date, m.StartTime, m.EndTime, m.Attendees, m.CalendarName,
		m.CreatedAt, m.UpdatedAt,
	}
}

// ApplyReconciliation は同期バッチ（挿入・更新・削除）を
// 単一トランザクションでアトミックに適用する。
// いずれかの文が失敗した場合はロールバックし、ストアは同期前の状態を維持する。
func (r *PostgresMeetingRepo) ApplyReconciliation(ctx context.Context, batch ReconciliationBatch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("同期トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, m := range batch.Inserts {
		if _, err := tx.ExecContext(ctx, insertMeetingQuery, insertMeetingArgs(m)...); err != nil {
			return fmt.Errorf("同期バッチの挿入に失敗しました (event_id=%s): %w", m.EventID, err)
		}
	}

	for _, m := range batch.Updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE meetings SET
			    title = $2, description = $3, date = $4, start_time = $5,
			    end_time = $6, attendees = $7, calendar_name = $8, updated_at = $9
			 WHERE event_id = $1`,
			m.EventID, m.Title, nullString(m.Description), m.Date,
			m.StartTime, m.EndTime, m.Attendees, m.CalendarName, m.UpdatedAt,
		); err != nil {
			return fmt.Errorf("同期バッチの更新に失敗しました (event_id=%s): %w", m.EventID, err)
		}
	}

	if len(batch.DeleteEventIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM meetings WHERE event_id = ANY($1)`,
			pq.Array(batch.DeleteEventIDs),
		); err != nil {
			return fmt.Errorf("同期バッチの削除に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("同期トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// compile-time interface check
var _ MeetingRepository = (*PostgresMeetingRepo)(nil)
