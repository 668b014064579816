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

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// GoogleServiceInterface covers the OAuth2 code flow against Google.
type GoogleServiceInterface interface {
	AuthURL() (string, string, error)
	Exchange(ctx context.Context, code string) (*services.ExternalIdentity, error)
}

// GoogleHandler signs users in with a Google account. A nil provider means
// Google sign-in is not configured and every request gets 404.
type GoogleHandler struct {
	provider GoogleServiceInterface
	auth     AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	cookies  CookieSettings
}

func NewGoogleHandler(provider GoogleServiceInterface, authService AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookies CookieSettings) *GoogleHandler {
	return &GoogleHandler{
		provider: provider,
		auth:     authService,
		ipConfig: ipConfig,
		cookies:  cookies,
	}
}

type GoogleURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type GoogleLoginRequest struct {
	Code  string `json:"code" validate:"required,max=2048"`
	State string `json:"state" validate:"max=256"`
}

// AuthURL returns the consent URL. The state is also stored in a short-lived
// cookie so a browser round trip can be bound to it.
// @Router /auth/google/url [get]
func (h *GoogleHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeServiceError(w, models.ErrProviderDisabled)
		return
	}

	url, state, err := h.provider.AuthURL()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		Domain:   h.cookies.Cookie.Domain,
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	pkghttp.WriteJSON(w, http.StatusOK, GoogleURLResponse{URL: url, State: state})
}

// Login exchanges an authorization code and continues the normal login flow,
// including MFA for accounts that have it enabled.
// @Router /auth/google/login [post]
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeServiceError(w, models.ErrProviderDisabled)
		return
	}

	var req GoogleLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if cookie, err := r.Cookie(oauthStateCookie); err == nil {
		if !auth.SecretsEqual(req.State, cookie.Value) {
			pkghttp.WriteUnauthorized(w, "Could not validate credentials")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/google", MaxAge: -1})
	}

	identity, err := h.provider.Exchange(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	client := models.ClientInfo{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	}
	result, err := h.auth.LoginExternal(r.Context(), identity, auth.GetTrustedDeviceCookie(r), client)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeLoginResult(w, result, h.cookies)
}
