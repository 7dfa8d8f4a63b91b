package kite

import "encoding/json"

// envelope is the broker's standard JSON response wrapper.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

const statusSuccess = "success"

// loginData is the data object of a successful credential POST.
type loginData struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
	TwofaType string `json:"twofa_type"`
}

// Cookie names used by the broker's web portal.
const (
	cookieEnctoken    = "enctoken"
	cookiePublicToken = "public_token"
	cookieKFSession   = "kf_session"
)
