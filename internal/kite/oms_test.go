package kite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
)

// valid base32, used wherever a TOTP secret is needed
const testTOTPSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, srv.URL, 5*time.Second)
}

func TestLoginOMS(t *testing.T) {
	t.Run("completes the two-step flow and harvests cookies", func(t *testing.T) {
		var twofaCookie string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/login":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "AB1234", r.PostForm.Get("user_id"))
				assert.Equal(t, "secret", r.PostForm.Get("password"))
				w.Header().Add("Set-Cookie", "kf_session=kf-abc; Path=/; HttpOnly")
				w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234","request_id":"req-1","twofa_type":"totp"}}`))
			case "/api/twofa":
				require.NoError(t, r.ParseForm())
				twofaCookie = r.Header.Get("Cookie")
				assert.Equal(t, "req-1", r.PostForm.Get("request_id"))
				assert.Equal(t, "totp", r.PostForm.Get("twofa_type"))
				assert.Len(t, r.PostForm.Get("twofa_value"), 6)
				w.Header().Add("Set-Cookie", "enctoken=enc%3D%3D; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/")
				w.Header().Add("Set-Cookie", "public_token=pub-1; Path=/")
				w.Write([]byte(`{"status":"success","data":{"profile":{}}}`))
			default:
				t.Errorf("unexpected request to %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		session, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "secret", testTOTPSecret)
		require.NoError(t, err)

		assert.Equal(t, "AB1234", session.UserID)
		assert.Equal(t, "enc%3D%3D", session.Enctoken)
		assert.Equal(t, "kf-abc", session.KFSession)
		assert.Equal(t, "pub-1", session.PublicToken)
		assert.NotEmpty(t, session.LoginTime)
		assert.Contains(t, session.RawCookies, "kf_session=kf-abc")
		assert.Contains(t, session.RawCookies, "enctoken=enc%3D%3D")

		// 2FA step must replay the login cookies
		assert.Contains(t, twofaCookie, "kf_session=kf-abc")
	})

	t.Run("credential rejection surfaces upstream body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"status":"error","message":"Invalid username or password"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "wrong", testTOTPSecret)
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeExternalAuthFailed, appErr.Code)
		assert.Contains(t, appErr.Details, "Invalid username or password")
	})

	t.Run("non-success status with 200 is still a failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"error","message":"account locked"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "secret", testTOTPSecret)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternalAuthFailed, apperrors.GetCode(err))
	})

	t.Run("2FA rejection aborts the driver", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/login":
				w.Header().Add("Set-Cookie", "kf_session=kf-abc; Path=/")
				w.Write([]byte(`{"status":"success","data":{"request_id":"req-1","twofa_type":"totp"}}`))
			case "/api/twofa":
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"status":"error","message":"Invalid TOTP"}`))
			}
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "secret", testTOTPSecret)
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeExternalAuthFailed, appErr.Code)
		assert.Contains(t, appErr.Details, "Invalid TOTP")
	})

	t.Run("invalid TOTP secret fails before the 2FA round trip", func(t *testing.T) {
		var twofaCalled bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/login":
				w.Write([]byte(`{"status":"success","data":{"request_id":"req-1","twofa_type":"totp"}}`))
			case "/api/twofa":
				twofaCalled = true
			}
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "secret", "!!not base32!!")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidSecretFormat, apperrors.GetCode(err))
		assert.False(t, twofaCalled)
	})

	t.Run("missing enctoken cookie is an auth failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/login":
				w.Header().Add("Set-Cookie", "kf_session=kf-abc; Path=/")
				w.Write([]byte(`{"status":"success","data":{"request_id":"req-1","twofa_type":"totp"}}`))
			case "/api/twofa":
				w.Write([]byte(`{"status":"success","data":{}}`))
			}
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LoginOMS(context.Background(), "AB1234", "secret", testTOTPSecret)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternalAuthFailed, apperrors.GetCode(err))
	})
}

func TestCheckEnctoken(t *testing.T) {
	t.Run("200 means valid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oms/user/profile", r.URL.Path)
			assert.Equal(t, "enctoken tok-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234"}}`))
		}))
		defer srv.Close()

		assert.True(t, newTestClient(srv).CheckEnctoken(context.Background(), "tok-1"))
	})

	t.Run("any non-200 means invalid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		assert.False(t, newTestClient(srv).CheckEnctoken(context.Background(), "tok-1"))
	})

	t.Run("network failure means invalid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		assert.False(t, newTestClient(srv).CheckEnctoken(context.Background(), "tok-1"))
	})
}
