// Package model はドメインモデルを定義する。
package model

import "time"

// Credential はカレンダープロバイダーのOAuthトークンを表す。
// 単一ユーザー前提のため、ストアには常に高々1件のみ保存される。
// RawJSONはプロバイダーから受領したトークンレスポンスをそのまま保持する。
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	RawJSON      []byte
	UpdatedAt    time.Time
}

// expirySkew はトークン失効判定の猶予時間。
// 失効直前のトークンでAPIを呼んで失敗するのを避ける。
const expirySkew = time.Minute

// Valid はアクセストークンがまだ利用可能かを返す。
// Expiryがゼロ値の場合は失効情報なしとして有効扱いする。
func (c *Credential) Valid(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return now.Add(expirySkew).Before(c.Expiry)
}
