// Package auth はOAuth認可フローと認可情報の管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
	"github.com/eliaahadi/meeting-tracker/internal/repository"
)

// OAuthProvider はOAuth認可プロバイダーのインターフェース。
// トークンエンドポイントの差し替え（テスト・別プロバイダー）のための抽象化。
type OAuthProvider interface {
	// AuthCodeURL はOAuth認可URLを生成する。
	AuthCodeURL(state string) string
	// Exchange は認可コードを認可情報に交換する。
	Exchange(ctx context.Context, code string) (*model.Credential, error)
	// Refresh はリフレッシュトークンで認可情報を更新する。
	Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error)
}

// Service はカレンダーAPIの認可情報を管理する。
// 取得した認可情報は不透明なトークンとして永続化し、
// 失効時には自動的にリフレッシュして再保存する。
type Service struct {
	oauth    OAuthProvider
	credRepo repository.CredentialRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, credRepo repository.CredentialRepository) *Service {
	return &Service{
		oauth:    oauth,
		credRepo: credRepo,
		now:      time.Now,
	}
}

// AuthCodeURL はOAuth認可URLを生成する。
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// HandleCallback はOAuthコールバックで受領した認可コードを交換し、
// 認可情報を永続化する。既存の認可情報は上書きされる。
func (s *Service) HandleCallback(ctx context.Context, code string) error {
	cred, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	if err := s.credRepo.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	slog.Info("calendar credential stored",
		slog.Time("expiry", cred.Expiry),
	)

	return nil
}

// HasCredential は認可情報が登録済みかを返す。
func (s *Service) HasCredential(ctx context.Context) (bool, error) {
	cred, err := s.credRepo.Find(ctx)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

// Token は有効なアクセストークンを返す。
// 失効している場合はリフレッシュして再保存する。
// 認可情報が未登録の場合はAUTH_REQUIREDのAPIErrorを返し、
// リフレッシュ失敗はプロバイダーエラーとして返す。
func (s *Service) Token(ctx context.Context) (string, error) {
	cred, err := s.credRepo.Find(ctx)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", model.NewAuthRequiredError()
	}

	if cred.Valid(s.now()) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		// リフレッシュ不能な失効トークンは再認可が必要
		return "", model.NewAuthRequiredError()
	}

	refreshed, err := s.oauth.Refresh(ctx, cred)
	if err != nil {
		return "", model.NewProviderError(fmt.Sprintf("token refresh failed: %v", err))
	}

	if err := s.credRepo.Save(ctx, refreshed); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	slog.Info("calendar credential refreshed",
		slog.Time("expiry", refreshed.Expiry),
	)

	return refreshed.AccessToken, nil
}
