// Package kite drives the broker's cookie-based web login and its
// official API token handshake. All flows are strictly sequential: each
// round trip consumes state extracted from the previous response, and no
// step is retried.
package kite

import (
	"net/http"
	"strings"
	"time"
)

const userAgent = "sessiongate/1.0"

type Client struct {
	webBase string
	apiBase string
	http    *http.Client
}

// NewClient builds a broker client. The HTTP client never follows
// redirects: the API handshake reads sess_id and request_token out of
// Location headers, so an auto-followed 302 would lose them.
func NewClient(webBase, apiBase string, timeout time.Duration) *Client {
	return &Client{
		webBase: strings.TrimRight(webBase, "/"),
		apiBase: strings.TrimRight(apiBase, "/"),
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// rawSetCookies joins all Set-Cookie values of a response into one
// comma-separated blob, the format the cookie accumulator consumes.
func rawSetCookies(resp *http.Response) string {
	return strings.Join(resp.Header.Values("Set-Cookie"), ", ")
}
