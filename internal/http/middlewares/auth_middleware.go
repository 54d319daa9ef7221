package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/speechgate/internal/actorctx"
	"github.com/geocoder89/speechgate/internal/auth"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

type AuthMiddleware struct {
	verifier IdentityVerifier
	prom     *observability.Prom
	log      *slog.Logger
}

func NewAuthMiddleware(verifier IdentityVerifier, prom *observability.Prom, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &AuthMiddleware{verifier: verifier, prom: prom, log: log}
}

// RequireIdentity validates the bearer credential and stashes the caller's
// email and display name on both the gin context and the request context.
func (m *AuthMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))

		id, err := m.verifier.Verify(c.Request.Context(), raw)

		switch {
		case err == nil:
		case errors.Is(err, auth.ErrIncompleteIdentity):
			m.count("incomplete")
			reqID, _ := c.Get(CtxRequestID)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":      "invalid_request",
					"message":   "Invalid request payload.",
					"requestId": reqID,
				},
			})
			return
		default:
			m.count("invalid")
			// the caller only sees the short diagnostic
			m.log.WarnContext(c.Request.Context(), "token rejected", "op", "auth.verify", "reason", auth.Diagnostic(err), "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid token.",
				"error":   auth.Diagnostic(err),
			})
			return
		}

		m.count("ok")

		c.Set(CtxEmail, id.Email)
		c.Set(CtxName, id.Name)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id.Email, id.Name))

		c.Next()
	}
}

func (m *AuthMiddleware) count(result string) {
	if m.prom != nil {
		m.prom.AuthResults.WithLabelValues(result).Inc()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func EmailFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxEmail)
}

func NameFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxName)
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
