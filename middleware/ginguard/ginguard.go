// Package ginguard adapts goGuard.Engine.Authenticate to gin.
package ginguard

import (
	"github.com/gin-gonic/gin"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/middleware"
)

// Context keys set on the gin context for handler convenience.
const (
	SubjectKey   = "goguard.subject"
	PrincipalKey = "goguard.principal"
	TokenKey     = "goguard.token"
)

// Guard authenticates tokens of type typ. Rejected requests are aborted with the JSON body
// and status of middleware.WriteError.
func Guard(engine *goGuard.Engine, typ goGuard.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			abort(c, goGuard.ErrEngineNotReady)
			return
		}

		req := middleware.AuthRequest(c.Request, engine.Config(), typ)
		res, err := engine.Authenticate(c.Request.Context(), req)
		if err != nil {
			abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(goGuard.WithAuthenticated(c.Request.Context(), res))
		c.Set(SubjectKey, res.Principal.AuthIdentifier())
		c.Set(PrincipalKey, res.Principal)
		c.Set(TokenKey, res.Token)

		c.Next()
	}
}

func RequireAccess(engine *goGuard.Engine) gin.HandlerFunc {
	return Guard(engine, goGuard.AccessToken)
}

func RequireRefresh(engine *goGuard.Engine) gin.HandlerFunc {
	return Guard(engine, goGuard.RefreshToken)
}

// Token returns the verified token stored by Guard.
func Token(c *gin.Context) (*goGuard.RequestToken, bool) {
	v, ok := c.Get(TokenKey)
	if !ok {
		return nil, false
	}
	t, ok := v.(*goGuard.RequestToken)
	return t, ok
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(middleware.StatusFor(err), middleware.Body(err))
}
