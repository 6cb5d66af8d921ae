package middleware

import (
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
)

// Guard authenticates requests for tokens of type typ. On success the principal and token
// are available through goGuard.PrincipalFromContext and goGuard.RequestTokenFromContext.
func Guard(engine *goGuard.Engine, typ goGuard.TokenType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, goGuard.ErrEngineNotReady)
				return
			}

			res, err := engine.Authenticate(r.Context(), AuthRequest(r, engine.Config(), typ))
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(goGuard.WithAuthenticated(r.Context(), res)))
		})
	}
}

func RequireAccess(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goGuard.AccessToken)
}

func RequireRefresh(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goGuard.RefreshToken)
}

// AuthRequest extracts the transport fields of r for a token of type typ.
func AuthRequest(r *http.Request, cfg goGuard.Config, typ goGuard.TokenType) goGuard.AuthRequest {
	req := goGuard.AuthRequest{
		UserAgent: r.UserAgent(),
		Required:  typ,
	}

	if typ == goGuard.RefreshToken && cfg.RefreshToken.Mechanism == goGuard.RefreshCookie {
		if c, err := r.Cookie(cfg.RefreshToken.Cookie.Name); err == nil {
			req.Token = c.Value
		}
	} else if token, ok := BearerToken(r.Header.Get("Authorization")); ok {
		req.Token = token
	}

	if cfg.AccessTokenVerifier.Enabled {
		if c, err := r.Cookie(cfg.AccessTokenVerifier.Cookie.Name); err == nil {
			req.Verifier = c.Value
		}
	}
	return req
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header value.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
