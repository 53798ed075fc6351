package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用したOAuthトークンリポジトリ。
// credentialsテーブルは単一行（id = 1）のみを保持する。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// Save は認可情報をUPSERTする。既存の認可情報は上書きされる。
func (r *PostgresCredentialRepo) Save(ctx context.Context, cred *model.Credential) error {
	var expiry sql.NullTime
	if !cred.Expiry.IsZero() {
		expiry = sql.NullTime{Time: cred.Expiry, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, access_token, refresh_token, token_type, expiry, raw_json, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		    access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    token_type = EXCLUDED.token_type,
		    expiry = EXCLUDED.expiry,
		    raw_json = EXCLUDED.raw_json,
		    updated_at = EXCLUDED.updated_at`,
		cred.AccessToken, cred.RefreshToken, cred.TokenType, expiry, cred.RawJSON, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("認可情報の保存に失敗しました: %w", err)
	}
	return nil
}

// Find は保存済みの認可情報を取得する。未登録の場合はnilを返す。
func (r *PostgresCredentialRepo) Find(ctx context.Context) (*model.Credential, error) {
	cred := &model.Credential{}
	var expiry sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, token_type, expiry, raw_json, updated_at
		 FROM credentials WHERE id = 1`,
	).Scan(&cred.AccessToken, &cred.RefreshToken, &cred.TokenType, &expiry, &cred.RawJSON, &cred.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("認可情報の取得に失敗しました: %w", err)
	}

	if expiry.Valid {
		cred.Expiry = expiry.Time
	}

	return cred, nil
}

// Delete は保存済みの認可情報を削除する。未登録の場合もエラーにならない。
func (r *PostgresCredentialRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("認可情報の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
