package model

import (
	"time"
)

// Account holds the credential material needed to re-authenticate a user
// against the broker. Rows are upserted on registration and never deleted
// automatically.
type Account struct {
	UserID       string    `db:"user_id" json:"user_id"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TOTPSecret   string    `db:"totp_secret" json:"-"`
	APIKey       *string   `db:"api_key" json:"api_key,omitempty"`
	APISecret    *string   `db:"api_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type UpsertAccountParams struct {
	UserID       string
	PasswordHash string
	TOTPSecret   string
	APIKey       *string
	APISecret    *string
}
