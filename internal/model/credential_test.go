package model

import (
	"testing"
	"time"
)

// TestCredential_Valid はトークンの有効性判定を検証する。
func TestCredential_Valid(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{
			name: "有効期限内",
			cred: Credential{AccessToken: "tok", Expiry: now.Add(time.Hour)},
			want: true,
		},
		{
			name: "失効済み",
			cred: Credential{AccessToken: "tok", Expiry: now.Add(-time.Hour)},
			want: false,
		},
		{
			name: "失効直前は猶予時間で無効扱い",
			cred: Credential{AccessToken: "tok", Expiry: now.Add(30 * time.Second)},
			want: false,
		},
		{
			name: "Expiryゼロ値は有効扱い",
			cred: Credential{AccessToken: "tok"},
			want: true,
		},
		{
			name: "アクセストークンが空",
			cred: Credential{Expiry: now.Add(time.Hour)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
