package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	LoginExternal(ctx context.Context, identity *services.ExternalIdentity, deviceToken string, client models.ClientInfo) (*services.LoginResult, error)
	VerifyMFA(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error)
	Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error
	LogoutAll(ctx context.Context, claims *models.TokenClaims, keepRefresh string) (int64, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// EmailVerificationServiceInterface defines the interface for email verification
type EmailVerificationServiceInterface interface {
	VerifyEmail(ctx context.Context, plainToken string) (int64, error)
	ResendVerification(ctx context.Context, email string) error
}

// CookieSettings controls the cookies written alongside token responses.
type CookieSettings struct {
	Cookie     auth.CookieConfig
	RefreshTTL time.Duration
	DeviceTTL  time.Duration
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	verification EmailVerificationServiceInterface
	ipConfig     *pkghttp.IPConfig
	cookies      CookieSettings
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, verification EmailVerificationServiceInterface, ipConfig *pkghttp.IPConfig, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verification: verification,
		ipConfig:     ipConfig,
		cookies:      cookies,
	}
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	FullName string `json:"full_name" validate:"max=255"`
}

// VerifyMFARequest carries either a TOTP code or a recovery code, never both.
type VerifyMFARequest struct {
	ChallengeToken string `json:"mfa_challenge_token" validate:"required"`
	Code           string `json:"code" validate:"omitempty,totp"`
	RecoveryCode   string `json:"recovery_code" validate:"omitempty,recovery_code"`
	TrustDevice    bool   `json:"trust_device"`
}

// RefreshTokenRequest is optional; the refresh cookie is used when the body is empty.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutAllRequest struct {
	KeepCurrent  bool   `json:"keep_current"`
	RefreshToken string `json:"refresh_token"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// Response DTOs

// TokenResponse is returned by every endpoint that completes a login.
type TokenResponse struct {
	models.TokenPair
	User *models.UserResponse `json:"user,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterResponse struct {
	User    models.UserResponse `json:"user"`
	Message string              `json:"message"`
}

type LogoutAllResponse struct {
	RevokedSessions int64 `json:"revoked_sessions"`
}

func (h *AuthHandler) clientInfo(r *http.Request) models.ClientInfo {
	return models.ClientInfo{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	}
}

// writeLoginResult answers either with an MFA challenge or with a token pair,
// setting the refresh and trusted-device cookies for browser clients.
func writeLoginResult(w http.ResponseWriter, result *services.LoginResult, cookies CookieSettings) {
	if result.MFA != nil {
		pkghttp.WriteJSON(w, http.StatusOK, result.MFA)
		return
	}

	auth.SetRefreshTokenCookie(w, result.Tokens.RefreshToken, cookies.RefreshTTL, cookies.Cookie)
	if result.DeviceToken != "" {
		auth.SetTrustedDeviceCookie(w, result.DeviceToken, cookies.DeviceTTL, cookies.Cookie)
	}

	resp := TokenResponse{TokenPair: *result.Tokens}
	if result.User != nil {
		u := result.User.ToResponse()
		resp.User = &u
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// refreshFromRequest prefers the body value and falls back to the cookie.
func refreshFromRequest(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	cookie, err := auth.GetRefreshTokenCookie(r)
	if err != nil {
		return ""
	}
	return cookie
}

// Register handles account creation
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "Account created"
	if !user.EmailVerified {
		message = "Account created. Check your email to verify your address."
	}
	pkghttp.WriteJSON(w, http.StatusCreated, RegisterResponse{User: user.ToResponse(), Message: message})
}

// Login handles user login
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		DeviceToken: auth.GetTrustedDeviceCookie(r),
		Client:      h.clientInfo(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeLoginResult(w, result, h.cookies)
}

// VerifyMFA completes a login that was answered with an MFA challenge
// @Router /auth/mfa/verify [post]
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyMFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if (req.Code == "") == (req.RecoveryCode == "") {
		pkghttp.WriteBadRequest(w, "Provide either code or recovery_code")
		return
	}

	result, err := h.service.VerifyMFA(r.Context(), services.VerifyMFAInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		RecoveryCode:   req.RecoveryCode,
		TrustDevice:    req.TrustDevice,
		Client:         h.clientInfo(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeLoginResult(w, result, h.cookies)
}

// Refresh rotates a refresh token
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	refresh := refreshFromRequest(r, req.RefreshToken)
	if refresh == "" {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	result, err := h.service.Refresh(r.Context(), refresh, h.clientInfo(r))
	if err != nil {
		auth.ClearRefreshTokenCookie(w, h.cookies.Cookie)
		writeServiceError(w, err)
		return
	}

	writeLoginResult(w, result, h.cookies)
}

// Logout revokes the presented access token and refresh token
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	var req RefreshTokenRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	if err := h.service.Logout(r.Context(), claims, refreshFromRequest(r, req.RefreshToken)); err != nil {
		writeServiceError(w, err)
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookies.Cookie)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every session of the caller, optionally keeping the current one
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
		return
	}

	var req LogoutAllRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	keep := ""
	if req.KeepCurrent {
		keep = refreshFromRequest(r, req.RefreshToken)
	}

	n, err := h.service.LogoutAll(r.Context(), claims, keep)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if keep == "" {
		auth.ClearRefreshTokenCookie(w, h.cookies.Cookie)
	}
	pkghttp.WriteJSON(w, http.StatusOK, LogoutAllResponse{RevokedSessions: n})
}

// VerifyEmail consumes an email verification token
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.verification.VerifyEmail(r.Context(), req.Token); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email verified"})
}

// ResendVerification sends a fresh verification email. The response does not
// reveal whether the address is registered.
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.verification.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the address needs verification, an email has been sent",
	})
}

// ForgotPassword always answers 202.
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_ = h.service.ForgotPassword(r.Context(), req.Email)

	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the account exists, a reset link has been sent",
	})
}

// ResetPassword sets a new password from a reset token
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}
