package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/audit"
	"github.com/marketloft/sessiongate/internal/config"
	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/redis"
	"github.com/marketloft/sessiongate/internal/repository"
	"github.com/marketloft/sessiongate/internal/util"
)

// lockRetryInterval paces waiting on the per-account login lock.
const lockRetryInterval = 200 * time.Millisecond

// Broker is the upstream driver surface the session cache needs.
// *kite.Client satisfies it.
type Broker interface {
	LoginOMS(ctx context.Context, userID, password, totpSecret string) (*model.OMSSession, error)
	ExchangeAPIToken(ctx context.Context, oms *model.OMSSession, apiKey, apiSecret string) (*model.APISession, error)
	CheckEnctoken(ctx context.Context, enctoken string) bool
	InvalidateAPIToken(ctx context.Context, apiKey, accessToken string) error
}

// loginLocker serializes concurrent logins for one account.
// *redis.Client satisfies it.
type loginLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type ObtainParams struct {
	UserID     string
	Password   string
	TOTPSecret string
	APIKey     string
	APISecret  string
}

// loginType resolves the tagged request variant: the API flow runs only
// when both API credentials are present.
func (p ObtainParams) loginType() model.LoginType {
	if p.APIKey != "" && p.APISecret != "" {
		return model.LoginTypeAPI
	}
	return model.LoginTypeOMS
}

type RegisterParams struct {
	UserID     string
	Password   string
	TOTPSecret string
	APIKey     string
	APISecret  string
}

type SessionService struct {
	sessionRepo repository.SessionRepository
	accountRepo repository.AccountRepository
	broker      Broker
	locker      loginLocker

	// credKey encrypts TOTP and API secrets at rest when set
	// (hex-encoded AES-256 key). Empty means plaintext storage.
	credKey string
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	accountRepo repository.AccountRepository,
	broker Broker,
	locker loginLocker,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		accountRepo: accountRepo,
		broker:      broker,
		locker:      locker,
	}
}

// WithCredentialKey enables at-rest encryption of stored secrets.
func (s *SessionService) WithCredentialKey(hexKey string) *SessionService {
	s.credKey = hexKey
	return s
}

func (s *SessionService) sealSecret(plaintext string) (string, error) {
	if s.credKey == "" || plaintext == "" {
		return plaintext, nil
	}
	return util.Encrypt(s.credKey, plaintext)
}

func (s *SessionService) openSecret(stored string) (string, error) {
	if s.credKey == "" || stored == "" {
		return stored, nil
	}
	return util.Decrypt(s.credKey, stored)
}

// Register provisions (or overwrites) the credential material for an
// account. The password is stored as a bcrypt hash.
func (s *SessionService) Register(ctx context.Context, params RegisterParams) (*model.Account, error) {
	if params.UserID == "" {
		return nil, apperrors.MissingRequired("user_id")
	}
	if params.Password == "" {
		return nil, apperrors.MissingRequired("password")
	}
	if !util.IsValidUserID(params.UserID) {
		return nil, apperrors.InvalidInput("user_id", "must be 3-12 uppercase alphanumeric characters")
	}

	hash, err := util.HashPassword(params.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password").WithCause(err)
	}

	totpSecret, err := s.sealSecret(params.TOTPSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to encrypt totp secret").WithCause(err)
	}
	apiSecret, err := s.sealSecret(params.APISecret)
	if err != nil {
		return nil, apperrors.Internal("failed to encrypt api secret").WithCause(err)
	}

	upsert := model.UpsertAccountParams{
		UserID:       params.UserID,
		PasswordHash: hash,
		TOTPSecret:   totpSecret,
	}
	if params.APIKey != "" {
		upsert.APIKey = &params.APIKey
	}
	if apiSecret != "" {
		upsert.APISecret = &apiSecret
	}

	account, err := s.accountRepo.Upsert(ctx, upsert)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventAccountRegister, UserID: params.UserID})
	return account, nil
}

// Obtain returns a live session for the account: the cached one when its
// bearer token still answers the profile probe, a freshly negotiated one
// otherwise. A fresh session is persisted as a new record; the cache
// write failing does not fail the login.
func (s *SessionService) Obtain(ctx context.Context, params ObtainParams) (*model.SessionData, error) {
	if params.UserID == "" {
		return nil, apperrors.MissingRequired("user_id")
	}
	if params.Password == "" {
		return nil, apperrors.MissingRequired("password")
	}
	if !util.IsValidUserID(params.UserID) {
		return nil, apperrors.InvalidInput("user_id", "must be 3-12 uppercase alphanumeric characters")
	}

	params, err := s.applyAccountDefaults(ctx, params)
	if err != nil {
		return nil, err
	}
	if params.TOTPSecret == "" {
		return nil, apperrors.MissingRequired("totp_secret")
	}

	// Fast path: no lock needed to reuse a still-valid session.
	if data, err := s.cachedSession(ctx, params.UserID); err != nil {
		return nil, err
	} else if data != nil {
		log.Debug().Str("user_id", params.UserID).Msg("session cache hit")
		return data, nil
	}

	unlock := s.lockAccount(ctx, params.UserID)
	defer unlock()

	// A concurrent login may have finished while we waited on the lock.
	if data, err := s.cachedSession(ctx, params.UserID); err != nil {
		return nil, err
	} else if data != nil {
		return data, nil
	}

	data, err := s.freshLogin(ctx, params)
	if err != nil {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, UserID: params.UserID})
		return nil, err
	}

	s.persistSession(ctx, params, data)

	audit.Log(ctx, audit.Event{
		Type:   audit.EventLoginSuccess,
		UserID: params.UserID,
		Details: map[string]interface{}{
			"login_type": string(data.LoginType),
		},
	})
	return data, nil
}

// applyAccountDefaults verifies the supplied password against the
// registered hash and fills credential material the request omitted.
// Unregistered accounts pass through; the broker is the authority.
func (s *SessionService) applyAccountDefaults(ctx context.Context, params ObtainParams) (ObtainParams, error) {
	account, err := s.accountRepo.FindByUserID(ctx, params.UserID)
	if err != nil {
		return params, apperrors.Storage(err)
	}
	if account == nil {
		return params, nil
	}

	if !util.CheckPasswordHash(params.Password, account.PasswordHash) {
		return params, apperrors.Unauthorized("invalid credentials")
	}
	if params.TOTPSecret == "" {
		secret, err := s.openSecret(account.TOTPSecret)
		if err != nil {
			return params, apperrors.Internal("failed to decrypt totp secret").WithCause(err)
		}
		params.TOTPSecret = secret
	}
	if params.APIKey == "" && account.APIKey != nil {
		params.APIKey = *account.APIKey
	}
	if params.APISecret == "" && account.APISecret != nil {
		secret, err := s.openSecret(*account.APISecret)
		if err != nil {
			return params, apperrors.Internal("failed to decrypt api secret").WithCause(err)
		}
		params.APISecret = secret
	}
	return params, nil
}

// cachedSession returns the deserialized payload of the latest session
// record when its bearer token still probes valid, nil otherwise.
func (s *SessionService) cachedSession(ctx context.Context, userID string) (*model.SessionData, error) {
	latest, err := s.sessionRepo.FindLatestByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if latest == nil || latest.Enctoken == nil || *latest.Enctoken == "" {
		return nil, nil
	}

	if !s.broker.CheckEnctoken(ctx, *latest.Enctoken) {
		log.Debug().Str("user_id", userID).Msg("cached session failed validity probe")
		return nil, nil
	}

	var data model.SessionData
	if err := json.Unmarshal(latest.Payload, &data); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("cached session payload unreadable, re-authenticating")
		return nil, nil
	}
	return &data, nil
}

// freshLogin runs the OMS driver and, for the API variant, the token
// exchange. Any step failing aborts the whole attempt; nothing partial
// is ever returned or cached.
func (s *SessionService) freshLogin(ctx context.Context, params ObtainParams) (*model.SessionData, error) {
	oms, err := s.broker.LoginOMS(ctx, params.UserID, params.Password, params.TOTPSecret)
	if err != nil {
		return nil, err
	}

	data := &model.SessionData{
		LoginType: params.loginType(),
		OMS:       oms,
	}

	if data.LoginType == model.LoginTypeAPI {
		api, err := s.broker.ExchangeAPIToken(ctx, oms, params.APIKey, params.APISecret)
		if err != nil {
			return nil, err
		}
		data.API = api
	}

	return data, nil
}

// persistSession snapshots the payload into a new session record. A
// storage failure here degrades gracefully: the caller still gets the
// session it just paid two or five round trips for.
func (s *SessionService) persistSession(ctx context.Context, params ObtainParams, data *model.SessionData) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("user_id", params.UserID).Msg("failed to serialize session payload")
		return
	}

	create := model.CreateSessionParams{
		UserID:    params.UserID,
		Enctoken:  &data.OMS.Enctoken,
		LoginType: data.LoginType,
		Payload:   payload,
		LoginTime: data.OMS.LoginTime,
	}
	if data.API != nil {
		create.APIKey = &data.API.APIKey
		create.AccessToken = &data.API.AccessToken
	}

	if _, err := s.sessionRepo.Create(ctx, create); err != nil {
		log.Error().Err(err).Str("user_id", params.UserID).Msg("failed to cache session, returning it uncached")
	}
}

// Logout invalidates the API token upstream when present (best effort)
// and deletes every session record for the account.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.MissingRequired("user_id")
	}

	latest, err := s.sessionRepo.FindLatestByUserID(ctx, userID)
	if err != nil {
		return apperrors.Storage(err)
	}
	if latest == nil {
		return apperrors.Unauthorized("no active session")
	}

	if latest.APIKey != nil && latest.AccessToken != nil && *latest.AccessToken != "" {
		if err := s.broker.InvalidateAPIToken(ctx, *latest.APIKey, *latest.AccessToken); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("upstream token invalidation failed")
		}
	}

	deleted, err := s.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return apperrors.Storage(err)
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventLogout,
		UserID:  userID,
		Details: map[string]interface{}{"deleted": deleted},
	})
	return nil
}

// lockAccount serializes logins per account via Redis. It degrades to
// proceeding unlocked when the lock cannot be acquired in time or Redis
// is down; duplicate records are tolerated by the newest-wins read path.
func (s *SessionService) lockAccount(ctx context.Context, userID string) func() {
	if s.locker == nil {
		return func() {}
	}

	key := redis.LoginLockKey(userID)
	deadline := time.Now().Add(config.LoginLockTTL)

	for {
		acquired, err := s.locker.AcquireLock(ctx, key, config.LoginLockTTL)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("login lock unavailable, proceeding unlocked")
			return func() {}
		}
		if acquired {
			return func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
					log.Warn().Err(err).Str("user_id", userID).Msg("failed to release login lock")
				}
			}
		}
		if time.Now().After(deadline) {
			log.Warn().Str("user_id", userID).Msg("login lock wait timed out, proceeding unlocked")
			return func() {}
		}

		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(lockRetryInterval):
		}
	}
}
