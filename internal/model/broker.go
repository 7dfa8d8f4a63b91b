package model

// OMSSession is the result of the web-portal login + 2FA exchange.
// RawCookies carries the comma-joined Set-Cookie batches from both steps
// for the API handshake; it is never persisted.
type OMSSession struct {
	UserID      string `json:"user_id"`
	Enctoken    string `json:"enctoken"`
	KFSession   string `json:"kf_session"`
	PublicToken string `json:"public_token"`
	LoginTime   string `json:"login_time"`
	RawCookies  string `json:"-"`
}

// APISession is the payload issued by the broker's token-exchange
// endpoint after the checksum handshake.
type APISession struct {
	UserID        string   `json:"user_id"`
	UserName      string   `json:"user_name,omitempty"`
	UserShortname string   `json:"user_shortname,omitempty"`
	Email         string   `json:"email,omitempty"`
	UserType      string   `json:"user_type,omitempty"`
	Broker        string   `json:"broker,omitempty"`
	Exchanges     []string `json:"exchanges,omitempty"`
	Products      []string `json:"products,omitempty"`
	OrderTypes    []string `json:"order_types,omitempty"`
	APIKey        string   `json:"api_key"`
	AccessToken   string   `json:"access_token"`
	PublicToken   string   `json:"public_token,omitempty"`
	RefreshToken  string   `json:"refresh_token,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	LoginTime     string   `json:"login_time,omitempty"`
}

// SessionData is the payload returned to callers and snapshotted into a
// SessionRecord. When the API exchange ran, API is authoritative; the OMS
// enctoken is still kept for validity probes.
type SessionData struct {
	LoginType LoginType   `json:"login_type"`
	OMS       *OMSSession `json:"oms,omitempty"`
	API       *APISession `json:"api,omitempty"`
}
