// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// ReconciliationBatch は1回の同期で適用される変更の集合を表す。
// 挿入・更新・削除はすべて同一トランザクションで適用され、
// 途中失敗時にはいずれも適用されない。
type ReconciliationBatch struct {
	Inserts        []*model.Meeting
	Updates        []*model.Meeting
	DeleteEventIDs []string
}

// Empty はバッチに適用すべき変更がないことを返す。
func (b *ReconciliationBatch) Empty() bool {
	return len(b.Inserts) == 0 && len(b.Updates) == 0 && len(b.DeleteEventIDs) == 0
}

// MeetingRepository はミーティングデータの永続化インターフェース。
type MeetingRepository interface {
	// FindByEventID は外部イベント識別子でミーティングを検索する。見つからない場合はnilを返す。
	FindByEventID(ctx context.Context, eventID string) (*model.Meeting, error)

	// ListAll は全ミーティングをdate降順・start_time降順で返す。
	ListAll(ctx context.Context) ([]*model.Meeting, error)

	// ListByDateRange は半開区間 [start, end) に含まれるミーティングを
	// date降順・start_time降順で返す。
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*model.Meeting, error)

	// ListSyncedInRange はevent_idを持ち、dateが半開区間 [start, end) に
	// 含まれるミーティングを返す。同期時のパージ候補の列挙に使用する。
	ListSyncedInRange(ctx context.Context, start, end time.Time) ([]*model.Meeting, error)

	// Create はミーティングを1件作成する。
	Create(ctx context.Context, meeting *model.Meeting) error

	// ApplyReconciliation は同期バッチ（挿入・更新・削除）を
	// 単一トランザクションでアトミックに適用する。
	ApplyReconciliation(ctx context.Context, batch ReconciliationBatch) error
}

// CredentialRepository はOAuthトークンの永続化インターフェース。
// 単一ユーザー前提のため、ストアには常に高々1件のみ保存される。
type CredentialRepository interface {
	// Save は認可情報をUPSERTする。既存の認可情報は上書きされる。
	Save(ctx context.Context, cred *model.Credential) error

	// Find は保存済みの認可情報を取得する。未登録の場合はnilを返す。
	Find(ctx context.Context) (*model.Credential, error)

	// Delete は保存済みの認可情報を削除する。
	Delete(ctx context.Context) error
}
