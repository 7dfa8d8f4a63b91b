package model

import (
	"encoding/json"
	"time"
)

// LoginType classifies how a session was obtained: the web-portal flow
// alone, or the web flow followed by the official API token exchange.
type LoginType string

const (
	LoginTypeOMS LoginType = "OMS"
	LoginTypeAPI LoginType = "API"
)

// SessionRecord is one persisted login. Records are insert-only: a
// re-login inserts a new row and the row with the greatest created_at is
// the current session for the account.
type SessionRecord struct {
	ID          int64           `db:"id" json:"-"`
	UserID      string          `db:"user_id" json:"user_id"`
	Enctoken    *string         `db:"enctoken" json:"-"`
	APIKey      *string         `db:"api_key" json:"-"`
	AccessToken *string         `db:"access_token" json:"-"`
	LoginType   LoginType       `db:"login_type" json:"login_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	LoginTime   string          `db:"login_time" json:"login_time"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type CreateSessionParams struct {
	UserID      string
	Enctoken    *string
	APIKey      *string
	AccessToken *string
	LoginType   LoginType
	Payload     json.RawMessage
	LoginTime   string
}
