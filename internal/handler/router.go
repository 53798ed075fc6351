package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eliaahadi/meeting-tracker/internal/middleware"
)

// DBPinger はヘルスチェック用のDB疎通確認インターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder

	// サービス
	MeetingService MeetingServiceInterface
	SyncService    SyncServiceInterface
	CredChecker    CredentialChecker
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig

	// 運用系
	DB             DBPinger
	MetricsHandler http.Handler
	StaticDir      string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit(General)
//
// /metricsと静的配信はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	}

	meetingHandler := NewMeetingHandler(deps.MeetingService)
	syncHandler := NewSyncHandler(deps.SyncService, deps.CredChecker)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)

	// --- API（レート制限あり） ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api", func(r chi.Router) {
			r.Get("/meetings", meetingHandler.ListMeetings)
			r.Get("/meetings/filter", meetingHandler.FilterMeetings)
			r.Post("/log-event", meetingHandler.LogEvent)
		})

		// 手動同期（同期専用レート制限を追加）
		r.With(deps.RateLimiter.SyncMiddleware()).Get("/sync-calendar", syncHandler.SyncCalendar)

		// OAuth認可フロー
		r.Get("/authorize", authHandler.Authorize)
		r.Get("/oauth2callback", authHandler.Callback)
	})

	// --- 運用系 ---
	r.Get("/health", healthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 静的フロントエンド配信 ---
	if deps.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(deps.StaticDir))
		r.Handle("/*", fileServer)
	}

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}
