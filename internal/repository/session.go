package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/marketloft/sessiongate/internal/model"
)

type SessionRepository interface {
	// FindLatestByUserID returns the current session: the record with
	// the greatest created_at for the account, or nil.
	FindLatestByUserID(ctx context.Context, userID string) (*model.SessionRecord, error)
	// Create inserts a new record. Session rows are never updated in
	// place; a re-login inserts and the newest row wins.
	Create(ctx context.Context, params model.CreateSessionParams) (*model.SessionRecord, error)
	// DeleteByUserID removes every session record for the account.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db sqlxDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindLatestByUserID(ctx context.Context, userID string) (*model.SessionRecord, error) {
	var session model.SessionRecord
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.SessionRecord, error) {
	var session model.SessionRecord
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (user_id, enctoken, api_key, access_token, login_type, payload, login_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.UserID, params.Enctoken, params.APIKey, params.AccessToken, params.LoginType, params.Payload, params.LoginTime)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID)
	return count, err
}
