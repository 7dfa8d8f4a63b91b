package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/cookie"
	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/util"
)

// ExchangeAPIToken turns a live OMS session into an official API access
// token: two manual-redirect hops yield sess_id then request_token, and
// the checksum-signed exchange trades the token for the session payload.
func (c *Client) ExchangeAPIToken(ctx context.Context, oms *model.OMSSession, apiKey, apiSecret string) (*model.APISession, error) {
	jar := cookie.ParseSetCookie(oms.RawCookies)
	cookieHeader := jar.Header()

	connectURL := fmt.Sprintf("%s/connect/login?v=3&api_key=%s", c.webBase, url.QueryEscape(apiKey))
	location, err := c.redirectLocation(ctx, connectURL, cookieHeader)
	if err != nil {
		return nil, err
	}

	sessID := location.Query().Get("sess_id")
	if sessID == "" {
		return nil, apperrors.HandshakeFailed("sess_id missing from connect redirect")
	}

	finishURL := fmt.Sprintf("%s/connect/finish?v=3&api_key=%s&sess_id=%s",
		c.webBase, url.QueryEscape(apiKey), url.QueryEscape(sessID))
	location, err = c.redirectLocation(ctx, finishURL, cookieHeader)
	if err != nil {
		return nil, err
	}

	requestToken := location.Query().Get("request_token")
	if requestToken == "" {
		return nil, apperrors.HandshakeFailed("request_token missing from finish redirect")
	}

	session, err := c.exchangeToken(ctx, apiKey, requestToken, apiSecret)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("user_id", session.UserID).Msg("API token exchange complete")
	return session, nil
}

// redirectLocation issues a no-follow GET that must answer exactly 302
// with a Location header. Anything else is a hard handshake failure; the
// redirect target is the protocol's only carrier for sess_id and
// request_token.
func (c *Client) redirectLocation(ctx context.Context, rawURL, cookieHeader string) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.HandshakeFailed(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", cookieHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.HandshakeFailed(err.Error())
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusFound {
		return nil, apperrors.HandshakeFailed(fmt.Sprintf("expected 302, got %d", resp.StatusCode))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, apperrors.HandshakeFailed("302 without Location header")
	}

	parsed, err := url.Parse(location)
	if err != nil {
		return nil, apperrors.HandshakeFailed(fmt.Sprintf("unparseable Location %q", location))
	}

	return parsed, nil
}

// exchangeToken posts api_key, request_token and the SHA-256 checksum to
// the token endpoint and decodes the session payload.
func (c *Client) exchangeToken(ctx context.Context, apiKey, requestToken, apiSecret string) (*model.APISession, error) {
	form := url.Values{}
	form.Set("api_key", apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", util.Checksum(apiKey, requestToken, apiSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/session/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.HandshakeFailed(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", "3")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.HandshakeFailed(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.HandshakeFailed(err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.HandshakeFailed(fmt.Sprintf("token exchange returned %d", resp.StatusCode)).
			WithDetails(string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.HandshakeFailed("malformed token exchange body")
	}

	var session model.APISession
	if err := json.Unmarshal(env.Data, &session); err != nil || session.AccessToken == "" {
		return nil, apperrors.HandshakeFailed("token exchange body missing access_token")
	}

	session.APIKey = apiKey
	return &session, nil
}

// InvalidateAPIToken revokes an access token upstream. Logout treats a
// failure here as best effort.
func (c *Client) InvalidateAPIToken(ctx context.Context, apiKey, accessToken string) error {
	deleteURL := fmt.Sprintf("%s/session/token?api_key=%s&access_token=%s",
		c.apiBase, url.QueryEscape(apiKey), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Kite-Version", "3")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalidate token returned %d", resp.StatusCode)
	}

	return nil
}
