package kite

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/cookie"
	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/totp"
)

// LoginOMS performs the 2-step web-portal login: credentials, then a
// TOTP code computed from the account's shared secret. The returned
// session carries the enctoken bearer, the primary session cookie and
// the raw Set-Cookie blobs of both responses for the API handshake.
func (c *Client) LoginOMS(ctx context.Context, userID, password, totpSecret string) (*model.OMSSession, error) {
	requestID, twofaType, rawBatch1, err := c.login(ctx, userID, password)
	if err != nil {
		return nil, err
	}

	code, err := totp.GenerateNow(totpSecret)
	if err != nil {
		return nil, err
	}

	rawBatch2, err := c.twofa(ctx, userID, requestID, twofaType, code, rawBatch1)
	if err != nil {
		return nil, err
	}

	batch1 := cookie.ParseSetCookie(rawBatch1)
	batch2 := cookie.ParseSetCookie(rawBatch2)

	enctoken := batch2.Get(cookieEnctoken)
	if enctoken == "" {
		return nil, apperrors.ExternalAuthFailed("twofa", "enctoken cookie missing from 2FA response")
	}

	session := &model.OMSSession{
		UserID:      userID,
		Enctoken:    enctoken,
		KFSession:   batch1.Get(cookieKFSession),
		PublicToken: batch2.Get(cookiePublicToken),
		LoginTime:   time.Now().Format(model.TimestampLayout),
		RawCookies:  rawBatch1 + ", " + rawBatch2,
	}

	log.Debug().Str("user_id", userID).Msg("OMS login complete")
	return session, nil
}

// login posts the credentials and returns the request_id and twofa_type
// needed by the 2FA step, plus the first Set-Cookie batch.
func (c *Client) login(ctx context.Context, userID, password string) (requestID, twofaType, rawCookies string, err error) {
	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("password", password)

	resp, body, err := c.postForm(ctx, c.webBase+"/api/login", form, "")
	if err != nil {
		return "", "", "", apperrors.ExternalAuthFailed("login", err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", "", apperrors.ExternalAuthFailed("login", string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status != statusSuccess {
		return "", "", "", apperrors.ExternalAuthFailed("login", string(body))
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", "", "", apperrors.ExternalAuthFailed("login", string(body))
	}

	return data.RequestID, data.TwofaType, rawSetCookies(resp), nil
}

// twofa posts the TOTP code with the cookies harvested from the login
// response and returns the second Set-Cookie batch.
func (c *Client) twofa(ctx context.Context, userID, requestID, twofaType, code, rawBatch1 string) (string, error) {
	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("request_id", requestID)
	form.Set("twofa_value", code)
	form.Set("twofa_type", twofaType)

	jar := cookie.ParseSetCookie(rawBatch1)

	resp, body, err := c.postForm(ctx, c.webBase+"/api/twofa", form, jar.Header())
	if err != nil {
		return "", apperrors.ExternalAuthFailed("twofa", err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.ExternalAuthFailed("twofa", string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status != statusSuccess {
		return "", apperrors.ExternalAuthFailed("twofa", string(body))
	}

	return rawSetCookies(resp), nil
}

// CheckEnctoken probes the profile endpoint with the bearer token. Only
// an HTTP 200 means the token is still live; any failure, including
// network errors, reports invalid.
func (c *Client) CheckEnctoken(ctx context.Context, enctoken string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webBase+"/oms/user/profile", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "enctoken "+enctoken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// postForm issues a form POST and drains the body. The body is returned
// so failure paths can surface the upstream text verbatim.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, cookieHeader string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", "3")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}
