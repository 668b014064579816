package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds access token claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, userID int64, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   models.TokenTypeAccess,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam sets a chi route parameter as the router would.
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// FindCookie returns the named Set-Cookie from a recorded response, or nil.
func FindCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	LoginExternalFunc  func(ctx context.Context, identity *services.ExternalIdentity, deviceToken string, client models.ClientInfo) (*services.LoginResult, error)
	VerifyMFAFunc      func(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error)
	LogoutFunc         func(ctx context.Context, claims *models.TokenClaims, refreshToken string) error
	LogoutAllFunc      func(ctx context.Context, claims *models.TokenClaims, keepRefresh string) (int64, error)
	RegisterFunc       func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) LoginExternal(ctx context.Context, identity *services.ExternalIdentity, deviceToken string, client models.ClientInfo) (*services.LoginResult, error) {
	if m.LoginExternalFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginExternalFunc(ctx, identity, deviceToken, client)
}

func (m *MockAuthService) VerifyMFA(ctx context.Context, in services.VerifyMFAInput) (*services.LoginResult, error) {
	if m.VerifyMFAFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.VerifyMFAFunc(ctx, in)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*services.LoginResult, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshFunc(ctx, refreshToken, client)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims, refreshToken)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, claims *models.TokenClaims, keepRefresh string) (int64, error) {
	if m.LogoutAllFunc == nil {
		return 0, nil
	}
	return m.LogoutAllFunc(ctx, claims, keepRefresh)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc == nil {
		return nil
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrUnauthorized
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

// MockEmailVerificationService for testing
type MockEmailVerificationService struct {
	VerifyEmailFunc        func(ctx context.Context, plainToken string) (int64, error)
	ResendVerificationFunc func(ctx context.Context, email string) error
}

func (m *MockEmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (int64, error) {
	if m.VerifyEmailFunc == nil {
		return 0, models.ErrUnauthorized
	}
	return m.VerifyEmailFunc(ctx, plainToken)
}

func (m *MockEmailVerificationService) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFunc == nil {
		return nil
	}
	return m.ResendVerificationFunc(ctx, email)
}

// MockSessionService implements SessionServiceInterface and SessionRevokerInterface
type MockSessionService struct {
	ListActiveFunc func(ctx context.Context, userID int64, currentPlain string) ([]models.SessionInfo, error)
	RevokeByIDFunc func(ctx context.Context, userID, id int64) error
	RevokeAllFunc  func(ctx context.Context, userID int64, exceptPlain string) (int64, error)
}

func (m *MockSessionService) ListActive(ctx context.Context, userID int64, currentPlain string) ([]models.SessionInfo, error) {
	if m.ListActiveFunc == nil {
		return nil, nil
	}
	return m.ListActiveFunc(ctx, userID, currentPlain)
}

func (m *MockSessionService) RevokeByID(ctx context.Context, userID, id int64) error {
	if m.RevokeByIDFunc == nil {
		return models.ErrNotFound
	}
	return m.RevokeByIDFunc(ctx, userID, id)
}

func (m *MockSessionService) RevokeAll(ctx context.Context, userID int64, exceptPlain string) (int64, error) {
	if m.RevokeAllFunc == nil {
		return 0, nil
	}
	return m.RevokeAllFunc(ctx, userID, exceptPlain)
}

// MockTrustedDeviceService implements TrustedDeviceServiceInterface
type MockTrustedDeviceService struct {
	ListFunc   func(ctx context.Context, userID int64) ([]*models.TrustedDevice, error)
	DeleteFunc func(ctx context.Context, userID, id int64) error
}

func (m *MockTrustedDeviceService) List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, userID)
}

func (m *MockTrustedDeviceService) Delete(ctx context.Context, userID, id int64) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, userID, id)
}

// MockMFAService implements MFAServiceInterface
type MockMFAService struct {
	StatusFunc                  func(ctx context.Context, userID int64) (*models.MFAStatus, error)
	BeginEnrollmentFunc         func(ctx context.Context, userID int64) (*models.MFASetupResponse, error)
	ConfirmEnrollmentFunc       func(ctx context.Context, userID int64, code string) (*models.MFAConfirmResponse, error)
	DisableFunc                 func(ctx context.Context, userID int64, code string) error
	RegenerateRecoveryCodesFunc func(ctx context.Context, userID int64, code string) ([]string, error)
}

func (m *MockMFAService) Status(ctx context.Context, userID int64) (*models.MFAStatus, error) {
	if m.StatusFunc == nil {
		return &models.MFAStatus{}, nil
	}
	return m.StatusFunc(ctx, userID)
}

func (m *MockMFAService) BeginEnrollment(ctx context.Context, userID int64) (*models.MFASetupResponse, error) {
	if m.BeginEnrollmentFunc == nil {
		return nil, models.ErrMFAAlreadyEnabled
	}
	return m.BeginEnrollmentFunc(ctx, userID)
}

func (m *MockMFAService) ConfirmEnrollment(ctx context.Context, userID int64, code string) (*models.MFAConfirmResponse, error) {
	if m.ConfirmEnrollmentFunc == nil {
		return nil, models.ErrInvalidCode
	}
	return m.ConfirmEnrollmentFunc(ctx, userID, code)
}

func (m *MockMFAService) Disable(ctx context.Context, userID int64, code string) error {
	if m.DisableFunc == nil {
		return models.ErrInvalidCode
	}
	return m.DisableFunc(ctx, userID, code)
}

func (m *MockMFAService) RegenerateRecoveryCodes(ctx context.Context, userID int64, code string) ([]string, error) {
	if m.RegenerateRecoveryCodesFunc == nil {
		return nil, models.ErrInvalidCode
	}
	return m.RegenerateRecoveryCodesFunc(ctx, userID, code)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetFunc           func(ctx context.Context, id int64) (*models.User, error)
	ListFunc          func(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
	CreateFunc        func(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, userID int64, upd services.ProfileUpdate, currentRefresh string) (*models.User, error)
	AdminUpdateFunc   func(ctx context.Context, actorID, id int64, upd models.UserUpdate) (*models.User, error)
	DeactivateFunc    func(ctx context.Context, actorID, id int64) error
	UnlockFunc        func(ctx context.Context, id int64) error
}

func (m *MockUserService) Get(ctx context.Context, id int64) (*models.User, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockUserService) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	if m.ListFunc == nil {
		return []*models.User{}, 0, nil
	}
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockUserService) Create(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateFunc(ctx, in)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID int64, upd services.ProfileUpdate, currentRefresh string) (*models.User, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, userID, upd, currentRefresh)
}

func (m *MockUserService) AdminUpdate(ctx context.Context, actorID, id int64, upd models.UserUpdate) (*models.User, error) {
	if m.AdminUpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.AdminUpdateFunc(ctx, actorID, id, upd)
}

func (m *MockUserService) Deactivate(ctx context.Context, actorID, id int64) error {
	if m.DeactivateFunc == nil {
		return nil
	}
	return m.DeactivateFunc(ctx, actorID, id)
}

func (m *MockUserService) Unlock(ctx context.Context, id int64) error {
	if m.UnlockFunc == nil {
		return nil
	}
	return m.UnlockFunc(ctx, id)
}

// MockSyncMonitor implements SyncMonitor
type MockSyncMonitor struct {
	FailureLog []models.SyncFailure
	Counters   services.SyncStats
}

func (m *MockSyncMonitor) Failures() []models.SyncFailure { return m.FailureLog }

func (m *MockSyncMonitor) Stats() services.SyncStats { return m.Counters }

// MockGoogleService implements GoogleServiceInterface
type MockGoogleService struct {
	AuthURLFunc  func() (string, string, error)
	ExchangeFunc func(ctx context.Context, code string) (*services.ExternalIdentity, error)
}

func (m *MockGoogleService) AuthURL() (string, string, error) {
	if m.AuthURLFunc == nil {
		return "https://accounts.google.com/o/oauth2/auth?state=state-1", "state-1", nil
	}
	return m.AuthURLFunc()
}

func (m *MockGoogleService) Exchange(ctx context.Context, code string) (*services.ExternalIdentity, error) {
	if m.ExchangeFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.ExchangeFunc(ctx, code)
}

// MockHealthChecker implements HealthChecker
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error { return m.Err }

// NewTestUser builds a verified, active user for handler tests.
func NewTestUser(id int64, email string) *models.User {
	return &models.User{
		ID:            id,
		Email:         email,
		FullName:      "Test User",
		IsActive:      true,
		EmailVerified: true,
	}
}

// NewTestLoginResult returns a completed login with a token pair.
func NewTestLoginResult(user *models.User) *services.LoginResult {
	return &services.LoginResult{
		User: user,
		Tokens: &models.TokenPair{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			ExpiresIn:    900,
		},
	}
}
