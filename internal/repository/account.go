package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketloft/sessiongate/internal/model"
)

type AccountRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Account, error)
	Upsert(ctx context.Context, params model.UpsertAccountParams) (*model.Account, error)
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type accountRepo struct {
	db sqlxDB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByUserID(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE user_id = $1
	`, userID)
	return HandleNotFound(&account, err)
}

// Upsert registers an account, overwriting credential material on
// re-registration.
func (r *accountRepo) Upsert(ctx context.Context, params model.UpsertAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (user_id, password_hash, totp_secret, api_key, api_secret)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			totp_secret = EXCLUDED.totp_secret,
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			updated_at = $6
		RETURNING *
	`, params.UserID, params.PasswordHash, params.TOTPSecret, params.APIKey, params.APISecret, time.Now())
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	return err
}

func (r *accountRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts`)
	return count, err
}
