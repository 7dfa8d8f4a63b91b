package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.Login)
	r.Delete("/logout", h.Logout)

	return r
}

type credentialsRequest struct {
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	TOTPSecret string `json:"totp_secret"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
}

// POST /api/v1/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	account, err := h.sessionService.Register(r.Context(), service.RegisterParams{
		UserID:     req.UserID,
		Password:   req.Password,
		TOTPSecret: req.TOTPSecret,
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("account registration failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":    account.UserID,
		"created_at": account.CreatedAt,
		"updated_at": account.UpdatedAt,
	})
}

// POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	data, err := h.sessionService.Obtain(r.Context(), service.ObtainParams{
		UserID:     req.UserID,
		Password:   req.Password,
		TOTPSecret: req.TOTPSecret,
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("session login failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// DELETE /api/v1/session/logout?user_id=...
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, apperrors.MissingRequired("user_id"))
		return
	}

	if err := h.sessionService.Logout(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("session logout failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
