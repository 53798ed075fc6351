package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// fakeSyncer は呼び出し回数を記録するテスト用Syncer。
type fakeSyncer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context) (*model.SyncReport, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.SyncReport{}, nil
}

// TestScheduler_RunsOnceAtStartup は起動直後に1回同期が実行されることを検証する。
func TestScheduler_RunsOnceAtStartup(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewScheduler(syncer, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の実行を待つ
	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not run initial sync")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if got := syncer.calls.Load(); got != 1 {
		t.Errorf("sync calls = %d, want 1", got)
	}
}

// TestScheduler_ContinuesAfterError は同期失敗後もスケジューラが
// 停止しないことを検証する。
func TestScheduler_ContinuesAfterError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("provider down")}
	s := NewScheduler(syncer, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx, 20*time.Millisecond)
		close(done)
	}()

	// 2回以上実行されるまで待つ（初回 + ティッカー1回以上）
	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler stopped after error")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

// TestScheduler_AuthRequiredIsSkipped は認可未登録エラーで
// スケジューラが停止しないことを検証する。
func TestScheduler_AuthRequiredIsSkipped(t *testing.T) {
	syncer := &fakeSyncer{err: model.NewAuthRequiredError()}
	s := NewScheduler(syncer, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
