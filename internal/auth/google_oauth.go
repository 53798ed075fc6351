package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

const (
	defaultGoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"

	// calendarReadonlyScope はカレンダー読み取り専用スコープ。
	// このアプリはイベントの取得のみを行い、書き込みは行わない。
	calendarReadonlyScope = "https://www.googleapis.com/auth/calendar.readonly"
)

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0によるカレンダーAPIの認可を提供する。
// アクセストークンの取得とリフレッシュのみを担い、ユーザー情報は扱わない。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	return &GoogleOAuthProvider{config: config}
}

// AuthCodeURL はGoogle OAuthの認可URLを生成する。
// リフレッシュトークンを確実に受領するためaccess_type=offlineと
// prompt=consentを指定する。
func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {calendarReadonlyScope},
		"state":         {state},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// googleTokenResponse はGoogleのトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Exchange は認可コードをアクセストークンに交換し、認可情報として返す。
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*model.Credential, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	tokenResp, raw, err := p.requestToken(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return credentialFromToken(tokenResp, raw, time.Now()), nil
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
// Googleはリフレッシュ応答にrefresh_tokenを含めないことがあるため、
// その場合は既存のリフレッシュトークンを引き継ぐ。
func (p *GoogleOAuthProvider) Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	data := url.Values{
		"refresh_token": {cred.RefreshToken},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"refresh_token"},
	}

	tokenResp, raw, err := p.requestToken(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	refreshed := credentialFromToken(tokenResp, raw, time.Now())
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}

	return refreshed, nil
}

// requestToken はトークンエンドポイントへのPOSTを実行する。
func (p *GoogleOAuthProvider) requestToken(ctx context.Context, data url.Values) (*googleTokenResponse, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, body, nil
}

// credentialFromToken はトークンレスポンスを認可情報に変換する。
func credentialFromToken(resp *googleTokenResponse, raw []byte, now time.Time) *model.Credential {
	cred := &model.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		RawJSON:      raw,
		UpdatedAt:    now,
	}
	if resp.ExpiresIn > 0 {
		cred.Expiry = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return cred
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
