package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// Syncer は同期の実行インターフェース。
type Syncer interface {
	Sync(ctx context.Context) (*model.SyncReport, error)
}

// Scheduler は定期的なカレンダー同期を実行する。
// 起動直後に1回実行し、以後は指定間隔のティッカーで繰り返す。
type Scheduler struct {
	syncer Syncer
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(syncer Syncer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer: syncer,
		logger: logger,
	}
}

// Start はスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("同期スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("同期スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce は同期を1回実行する。
// 認可情報が未登録の間は同期できないため、AUTH_REQUIREDは
// 警告ログにとどめて次のサイクルを待つ。
func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.syncer.Sync(ctx)
	if err != nil {
		if apiErr, ok := err.(*model.APIError); ok && apiErr.Code == model.ErrCodeAuthRequired {
			s.logger.Warn("認可情報が未登録のため同期をスキップしました")
			return
		}
		s.logger.Error("定期同期に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("定期同期が完了しました",
		slog.String("summary", report.Summary()),
	)
}
