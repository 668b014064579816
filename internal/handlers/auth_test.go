package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookies = handlers.CookieSettings{
	Cookie:     auth.CookieConfig{SameSite: "strict"},
	RefreshTTL: 7 * 24 * time.Hour,
	DeviceTTL:  30 * 24 * time.Hour,
}

func newAuthHandler(svc *handlers.MockAuthService, verification *handlers.MockEmailVerificationService) *handlers.AuthHandler {
	if verification == nil {
		verification = &handlers.MockEmailVerificationService{}
	}
	return handlers.NewAuthHandler(svc, verification, nil, testCookies)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
			assert.Equal(t, "user@example.com", in.Email)
			assert.Equal(t, "Str0ng!Pass", in.Password)
			assert.Equal(t, "test-agent", in.Client.UserAgent)
			return handlers.NewTestLoginResult(handlers.NewTestUser(7, "user@example.com")), nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "Str0ng!Pass",
	})
	req.Header.Set("User-Agent", "test-agent")

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.TokenResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(7), resp.User.ID)

	cookie := handlers.FindCookie(w, auth.RefreshTokenCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "refresh-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/auth", cookie.Path)
	assert.Nil(t, handlers.FindCookie(w, auth.TrustedDeviceCookie))
}

func TestLogin_MFARequired(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
			return &services.LoginResult{
				MFA: &models.MFARequiredResponse{
					MFARequired:       true,
					MFAChallengeToken: "challenge",
					ExpiresIn:         300,
					Detail:            "MFA verification required",
				},
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "Str0ng!Pass",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp models.MFARequiredResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.MFARequired)
	assert.Equal(t, "challenge", resp.MFAChallengeToken)
	assert.Nil(t, handlers.FindCookie(w, auth.RefreshTokenCookie))
}

func TestLogin_PassesTrustedDeviceCookie(t *testing.T) {
	var got string
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
			got = in.DeviceToken
			return handlers.NewTestLoginResult(nil), nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "Str0ng!Pass",
	})
	req.AddCookie(&http.Cookie{Name: auth.TrustedDeviceCookie, Value: "device-token"})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "device-token", got)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"account locked", models.ErrAccountLocked, http.StatusTooManyRequests, "account_locked"},
		{"email not verified", models.ErrEmailNotVerified, http.StatusForbidden, "email_not_verified"},
		{"unexpected", errors.New("database exploded"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
					return nil, tt.err
				},
			}

			handler := newAuthHandler(mockAuth, nil)
			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "user@example.com",
				Password: "wrongpassword",
			})

			w := httptest.NewRecorder()
			handler.Login(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
			assert.NotContains(t, w.Body.String(), "database exploded")
		})
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing password", handlers.LoginRequest{Email: "user@example.com"}},
		{"bad email", handlers.LoginRequest{Email: "not-an-email", Password: "x"}},
		{"not json", "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
					called = true
					return nil, nil
				},
			}

			handler := newAuthHandler(mockAuth, nil)
			w := httptest.NewRecorder()
			handler.Login(w, handlers.NewTestRequest(t, "POST", "/auth/login", tt.body))

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
			assert.False(t, called)
		})
	}
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			assert.Equal(t, "Jane", in.FullName)
			u := handlers.NewTestUser(3, in.Email)
			u.EmailVerified = false
			return u, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "jane@example.com",
		Password: "Str0ng!Pass",
		FullName: "Jane",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp handlers.RegisterResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Contains(t, resp.Message, "verify")
}

func TestRegister_WeakPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			return nil, &pkgauth.PasswordValidationError{Errors: []string{"must be at least 8 characters"}}
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "jane@example.com",
		Password: "abc",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp pkghttp.ErrorResponse
	handlers.AssertJSONResponse(t, w, http.StatusBadRequest, &resp)
	assert.Equal(t, "weak_password", resp.Error)
	assert.Contains(t, resp.Details, "at least 8 characters")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "jane@example.com",
		Password: "Str0ng!Pass",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusConflict, "conflict")
}

// ============================================================================
// MFA verification
// ============================================================================

func TestVerifyMFA_TrustDeviceSetsCookie(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		VerifyMFAFunc: func(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error) {
			assert.Equal(t, "challenge", in.ChallengeToken)
			assert.Equal(t, "123456", in.Code)
			assert.True(t, in.TrustDevice)
			result := handlers.NewTestLoginResult(handlers.NewTestUser(1, "user@example.com"))
			result.DeviceToken = "device-token"
			return result, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/mfa/verify", handlers.VerifyMFARequest{
		ChallengeToken: "challenge",
		Code:           "123456",
		TrustDevice:    true,
	})

	w := httptest.NewRecorder()
	handler.VerifyMFA(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	device := handlers.FindCookie(w, auth.TrustedDeviceCookie)
	require.NotNil(t, device)
	assert.Equal(t, "device-token", device.Value)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), device.MaxAge)
	assert.NotNil(t, handlers.FindCookie(w, auth.RefreshTokenCookie))
}

func TestVerifyMFA_RecoveryCode(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		VerifyMFAFunc: func(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error) {
			assert.Empty(t, in.Code)
			assert.Equal(t, "ABCD-2345", in.RecoveryCode)
			return handlers.NewTestLoginResult(nil), nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/mfa/verify", handlers.VerifyMFARequest{
		ChallengeToken: "challenge",
		RecoveryCode:   "ABCD-2345",
	})

	w := httptest.NewRecorder()
	handler.VerifyMFA(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyMFA_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  handlers.VerifyMFARequest
	}{
		{"no factor", handlers.VerifyMFARequest{ChallengeToken: "c"}},
		{"both factors", handlers.VerifyMFARequest{ChallengeToken: "c", Code: "123456", RecoveryCode: "ABCD-2345"}},
		{"short code", handlers.VerifyMFARequest{ChallengeToken: "c", Code: "12345"}},
		{"letters in code", handlers.VerifyMFARequest{ChallengeToken: "c", Code: "12a456"}},
		{"malformed recovery code", handlers.VerifyMFARequest{ChallengeToken: "c", RecoveryCode: "AB-CD"}},
		{"missing challenge", handlers.VerifyMFARequest{Code: "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newAuthHandler(&handlers.MockAuthService{}, nil)
			w := httptest.NewRecorder()
			handler.VerifyMFA(w, handlers.NewTestRequest(t, "POST", "/auth/mfa/verify", tt.req))

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestVerifyMFA_InvalidCode(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		VerifyMFAFunc: func(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error) {
			return nil, models.ErrInvalidCode
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/mfa/verify", handlers.VerifyMFARequest{
		ChallengeToken: "challenge",
		Code:           "000000",
	})

	w := httptest.NewRecorder()
	handler.VerifyMFA(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid_code")
	assert.Nil(t, handlers.FindCookie(w, auth.TrustedDeviceCookie))
}

// ============================================================================
// Refresh and logout
// ============================================================================

func TestRefresh_FromCookie(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error) {
			assert.Equal(t, "cookie-refresh", refreshToken)
			return handlers.NewTestLoginResult(nil), nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-refresh"})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	var resp handlers.TokenResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "refresh-token", handlers.FindCookie(w, auth.RefreshTokenCookie).Value)
}

func TestRefresh_BodyWinsOverCookie(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error) {
			assert.Equal(t, "body-refresh", refreshToken)
			return handlers.NewTestLoginResult(nil), nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", handlers.RefreshTokenRequest{RefreshToken: "body-refresh"})
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-refresh"})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefresh_Missing(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)

	w := httptest.NewRecorder()
	handler.Refresh(w, httptest.NewRequest("POST", "/auth/refresh", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestRefresh_RejectedClearsCookie(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", handlers.RefreshTokenRequest{RefreshToken: "used"})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	cleared := handlers.FindCookie(w, auth.RefreshTokenCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLogout_Success(t *testing.T) {
	var gotClaims *models.TokenClaims
	var gotRefresh string
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
			gotClaims = claims
			gotRefresh = refreshToken
			return nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.WithAuthContext(httptest.NewRequest("POST", "/auth/logout", nil), 9, "user@example.com")
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-refresh"})

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, int64(9), gotClaims.UserID)
	assert.Equal(t, "cookie-refresh", gotRefresh)
	assert.Equal(t, -1, handlers.FindCookie(w, auth.RefreshTokenCookie).MaxAge)
}

func TestLogout_Unauthenticated(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)

	w := httptest.NewRecorder()
	handler.Logout(w, httptest.NewRequest("POST", "/auth/logout", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestLogoutAll(t *testing.T) {
	tests := []struct {
		name         string
		body         handlers.LogoutAllRequest
		wantKeep     string
		wantCleared  bool
	}{
		{"everything", handlers.LogoutAllRequest{}, "", true},
		{"keep current", handlers.LogoutAllRequest{KeepCurrent: true}, "cookie-refresh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LogoutAllFunc: func(ctx context.Context, claims *models.TokenClaims, keepRefresh string) (int64, error) {
					assert.Equal(t, tt.wantKeep, keepRefresh)
					return 3, nil
				},
			}

			handler := newAuthHandler(mockAuth, nil)
			req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/auth/logout-all", tt.body), 9, "user@example.com")
			req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "cookie-refresh"})

			w := httptest.NewRecorder()
			handler.LogoutAll(w, req)

			var resp handlers.LogoutAllResponse
			handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
			assert.Equal(t, int64(3), resp.RevokedSessions)
			assert.Equal(t, tt.wantCleared, handlers.FindCookie(w, auth.RefreshTokenCookie) != nil)
		})
	}
}

// ============================================================================
// Email verification and password reset
// ============================================================================

func TestVerifyEmail(t *testing.T) {
	verification := &handlers.MockEmailVerificationService{
		VerifyEmailFunc: func(ctx context.Context, plainToken string) (int64, error) {
			if plainToken == "good" {
				return 1, nil
			}
			return 0, models.ErrUnauthorized
		},
	}
	handler := newAuthHandler(&handlers.MockAuthService{}, verification)

	w := httptest.NewRecorder()
	handler.VerifyEmail(w, handlers.NewTestRequest(t, "POST", "/auth/verify-email", handlers.VerifyEmailRequest{Token: "good"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.VerifyEmail(w, handlers.NewTestRequest(t, "POST", "/auth/verify-email", handlers.VerifyEmailRequest{Token: "bad"}))
	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestResendVerification_Accepted(t *testing.T) {
	var got string
	verification := &handlers.MockEmailVerificationService{
		ResendVerificationFunc: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	}
	handler := newAuthHandler(&handlers.MockAuthService{}, verification)

	w := httptest.NewRecorder()
	handler.ResendVerification(w, handlers.NewTestRequest(t, "POST", "/auth/resend-verification",
		handlers.ResendVerificationRequest{Email: "user@example.com"}))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "user@example.com", got)
}

func TestForgotPassword_AlwaysAccepted(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ForgotPasswordFunc: func(ctx context.Context, email string) error {
			return errors.New("mailer down")
		},
	}
	handler := newAuthHandler(mockAuth, nil)

	w := httptest.NewRecorder()
	handler.ForgotPassword(w, handlers.NewTestRequest(t, "POST", "/auth/forgot-password",
		handlers.ForgotPasswordRequest{Email: "nobody@example.com"}))

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, http.StatusAccepted, &resp)
	assert.NotEmpty(t, resp.Message)
}

func TestResetPassword(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"bad token", models.ErrUnauthorized, http.StatusUnauthorized},
		{"weak password", &pkgauth.PasswordValidationError{Errors: []string{"must contain a digit"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
					assert.Equal(t, "reset-jwt", token)
					return tt.err
				},
			}
			handler := newAuthHandler(mockAuth, nil)

			w := httptest.NewRecorder()
			handler.ResetPassword(w, handlers.NewTestRequest(t, "POST", "/auth/reset-password",
				handlers.ResetPasswordRequest{Token: "reset-jwt", NewPassword: "N3w!Password"}))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
