package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	RefreshTokenCookie  = "refresh_token"
	TrustedDeviceCookie = "trusted_device"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// SetRefreshTokenCookie sets a refresh token in an httpOnly cookie
func SetRefreshTokenCookie(w http.ResponseWriter, refreshToken string, ttl time.Duration, config CookieConfig) {
	setCookie(w, RefreshTokenCookie, refreshToken, "/auth", ttl, config)
}

// SetTrustedDeviceCookie stores the device token that lets this browser skip MFA.
func SetTrustedDeviceCookie(w http.ResponseWriter, deviceToken string, ttl time.Duration, config CookieConfig) {
	setCookie(w, TrustedDeviceCookie, deviceToken, "/auth", ttl, config)
}

// ClearRefreshTokenCookie clears the refresh token cookie
func ClearRefreshTokenCookie(w http.ResponseWriter, config CookieConfig) {
	setCookie(w, RefreshTokenCookie, "", "/auth", -1, config)
}

func ClearTrustedDeviceCookie(w http.ResponseWriter, config CookieConfig) {
	setCookie(w, TrustedDeviceCookie, "", "/auth", -1, config)
}

// GetRefreshTokenCookie retrieves the refresh token from cookies
func GetRefreshTokenCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetTrustedDeviceCookie returns the device token or "" when absent.
func GetTrustedDeviceCookie(r *http.Request) string {
	cookie, err := r.Cookie(TrustedDeviceCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setCookie(w http.ResponseWriter, name, value, path string, ttl time.Duration, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   config.Domain,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch strings.ToLower(sameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
