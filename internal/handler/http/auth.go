package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/service"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/middleware"
	"github.com/MichaelKMarwa/recupio/pkg/validator"
)

// AuthHandler serves the account, session and password endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	guests   *service.GuestService
	password *service.PasswordService
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(auth *service.AuthService, guests *service.GuestService, password *service.PasswordService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, guests: guests, password: password, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the JSON body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the JSON body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// UpgradeRequest is the JSON body of PUT /users/upgrade.
type UpgradeRequest struct {
	PaymentDetails struct {
		FeatureID     string `json:"featureId" validate:"omitempty,uuid"`
		Amount        int64  `json:"amount" validate:"gt=0"`
		Currency      string `json:"currency" validate:"omitempty,len=3"`
		PaymentMethod string `json:"paymentMethod"`
	} `json:"paymentDetails"`
}

// PreferencesRequest is the JSON body of PUT /users/preferences.
type PreferencesRequest struct {
	Preferences json.RawMessage `json:"preferences" validate:"required"`
}

// GuestPreferencesRequest is the JSON body of POST /auth/guest/preferences.
type GuestPreferencesRequest struct {
	ZipCode string `json:"zipCode" validate:"omitempty,zipcode"`
	Theme   string `json:"theme" validate:"omitempty,oneof=light dark system"`
}

// --- Response DTOs ---

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type guestSessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionStatusResponse struct {
	IsValid   bool         `json:"isValid"`
	User      *domain.User `json:"user,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// --- Handlers ---

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, authResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.auth.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, authResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// CreateGuestSession handles POST /auth/guest-session.
func (h *AuthHandler) CreateGuestSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.guests.Create(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, guestSessionResponse{SessionID: session.SessionID, ExpiresAt: session.ExpiresAt})
}

// ValidateGuestSession handles GET /auth/validate-guest-session?sessionId=.
func (h *AuthHandler) ValidateGuestSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		httputil.WriteError(w, r, apperrors.InvalidArgument("sessionId is required"), h.logger)
		return
	}

	session, err := h.guests.Validate(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrExpired) {
			err = apperrors.Unauthenticated("invalid or expired guest session")
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionStatusResponse{IsValid: true, ExpiresAt: &session.ExpiresAt})
}

// GetGuestSession handles GET /guest-sessions/{id}. Unknown and expired
// sessions are both reported as not found.
func (h *AuthHandler) GetGuestSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.guests.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrExpired) {
			err = apperrors.NotFoundMessage("invalid guest session")
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, session)
}

// VerifySession handles GET /auth/verify-session.
func (h *AuthHandler) VerifySession(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	user, err := h.auth.VerifySession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sessionStatusResponse{IsValid: true, User: user})
}

// Logout handles POST /auth/logout. The response reports whether a registry
// entry existed; the token itself stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	token, _ := middleware.BearerToken(r)
	if err := h.auth.Logout(r.Context(), id, token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}

// ForgotPassword handles POST /auth/forgot-password. It succeeds whether or
// not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.password.RequestReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.password.ConsumeReset(r.Context(), req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}

// Upgrade handles PUT /users/upgrade. The user comes from the token, never
// from the body.
func (h *AuthHandler) Upgrade(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req UpgradeRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	pd := req.PaymentDetails
	user, err := h.auth.Upgrade(r.Context(), id, service.UpgradeInput{
		FeatureID:     pd.FeatureID,
		Amount:        pd.Amount,
		Currency:      pd.Currency,
		PaymentMethod: pd.PaymentMethod,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// GetPreferences handles GET /users/preferences.
func (h *AuthHandler) GetPreferences(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	prefs, err := h.auth.GetPreferences(r.Context(), id.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, domain.UserPreferences{UserID: id.UserID, Preferences: prefs})
}

// SavePreferences handles PUT /users/preferences.
func (h *AuthHandler) SavePreferences(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req PreferencesRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.auth.SavePreferences(r.Context(), id.UserID, req.Preferences); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, domain.UserPreferences{UserID: id.UserID, Preferences: req.Preferences})
}

// GetGuestPreferences handles GET /auth/guest/preferences.
func (h *AuthHandler) GetGuestPreferences(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	prefs, err := h.guests.GetPreferences(r.Context(), id.SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, prefs)
}

// SaveGuestPreferences handles POST /auth/guest/preferences.
func (h *AuthHandler) SaveGuestPreferences(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req GuestPreferencesRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	prefs, err := h.guests.SavePreferences(r.Context(), id.SessionID, service.GuestPreferencesInput{
		ZipCode: req.ZipCode,
		Theme:   req.Theme,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, prefs)
}
