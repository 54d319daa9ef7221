package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/speechgate/internal/auth"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, id auth.Identity) (user.User, bool, error)
}

type AuthHandler struct {
	accounts Authenticator
}

func NewAuthHandler(accounts Authenticator) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Authenticate registers the caller on first login and refreshes the login
// date afterwards. The identity was put on the context by RequireIdentity.
func (h *AuthHandler) Authenticate(ctx *gin.Context) {
	email, okEmail := middlewares.EmailFromContext(ctx)
	name, okName := middlewares.NameFromContext(ctx)

	if !okEmail || !okName {
		RespondBadRequest(ctx, "Invalid request payload.", nil)
		return
	}

	_, _, err := h.accounts.Authenticate(ctx.Request.Context(), auth.Identity{Email: email, Name: name})
	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not complete authentication")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Authentication handled successfully."})
}
