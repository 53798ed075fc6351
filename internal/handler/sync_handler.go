package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// SyncServiceInterface は同期ハンドラーが必要とするサービスインターフェース。
type SyncServiceInterface interface {
	// Sync はカレンダー同期を1回実行する。
	Sync(ctx context.Context) (*model.SyncReport, error)
}

// CredentialChecker は認可情報の登録状態を確認するインターフェース。
type CredentialChecker interface {
	HasCredential(ctx context.Context) (bool, error)
}

// SyncHandler は手動カレンダー同期のHTTPハンドラー。
type SyncHandler struct {
	service SyncServiceInterface
	creds   CredentialChecker
}

// NewSyncHandler はSyncHandlerを生成する。
func NewSyncHandler(service SyncServiceInterface, creds CredentialChecker) *SyncHandler {
	return &SyncHandler{
		service: service,
		creds:   creds,
	}
}

// SyncCalendar は手動同期を実行する。
// GET /sync-calendar
//
// 認可情報が未登録の場合は401、プロバイダー失敗は502、
// 同期の多重実行は409を返す。成功時は平文のサマリーを返す。
func (h *SyncHandler) SyncCalendar(w http.ResponseWriter, r *http.Request) {
	ok, err := h.creds.HasCredential(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	report, err := h.service.Sync(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, report.Summary())
}
