package middleware

import (
	"net/http"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

func cookie(cfg goGuard.CookieConfig, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

// RefreshCookie builds the refresh token cookie.
func RefreshCookie(cfg goGuard.Config, res *goGuard.LoginResult) *http.Cookie {
	return cookie(cfg.RefreshToken.Cookie, res.RefreshToken, res.RefreshExpiresAt)
}

// VerifierCookie builds the access-token verifier cookie. It expires with the access token.
func VerifierCookie(cfg goGuard.Config, res *goGuard.LoginResult) *http.Cookie {
	return cookie(cfg.AccessTokenVerifier.Cookie, res.AccessTokenVerifier, res.AccessExpiresAt)
}

func SetRefreshCookie(w http.ResponseWriter, cfg goGuard.Config, res *goGuard.LoginResult) {
	http.SetCookie(w, RefreshCookie(cfg, res))
}

func SetVerifierCookie(w http.ResponseWriter, cfg goGuard.Config, res *goGuard.LoginResult) {
	http.SetCookie(w, VerifierCookie(cfg, res))
}

// SetLoginCookies writes the cookies a login response needs under cfg: the refresh cookie
// for the cookie mechanism and the verifier cookie when the verifier is enabled.
func SetLoginCookies(w http.ResponseWriter, cfg goGuard.Config, res *goGuard.LoginResult) {
	if res == nil {
		return
	}
	if cfg.RefreshToken.Mechanism == goGuard.RefreshCookie {
		SetRefreshCookie(w, cfg, res)
	}
	if cfg.AccessTokenVerifier.Enabled {
		SetVerifierCookie(w, cfg, res)
	}
}

// ClearCookies expires both cookies.
func ClearCookies(w http.ResponseWriter, cfg goGuard.Config) {
	for _, c := range []goGuard.CookieConfig{cfg.RefreshToken.Cookie, cfg.AccessTokenVerifier.Cookie} {
		if c.Name == "" {
			continue
		}
		out := cookie(c, "", time.Unix(0, 0))
		out.MaxAge = -1
		http.SetCookie(w, out)
	}
}
