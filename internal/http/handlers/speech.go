package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	domain "github.com/geocoder89/speechgate/internal/domain/speech"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/http/middlewares"
	"github.com/geocoder89/speechgate/internal/service"
	"github.com/geocoder89/speechgate/internal/speech"
	"github.com/gin-gonic/gin"
)

type SpeechGenerator interface {
	Generate(ctx context.Context, email string, req domain.Request) (*speech.Audio, error)
}

type SpeechHandler struct {
	generator SpeechGenerator
}

func NewSpeechHandler(generator SpeechGenerator) *SpeechHandler {
	return &SpeechHandler{generator: generator}
}

func (h *SpeechHandler) Generate(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Unauthorized.")
		return
	}

	var req domain.Request

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.Valid() {
		RespondBadRequest(ctx, "Invalid request parameters.", gin.H{"reason": "input, model and voice must not be blank"})
		return
	}

	audio, err := h.generator.Generate(ctx.Request.Context(), email, req)
	if err != nil {
		h.respondGenerateError(ctx, err)
		return
	}
	defer audio.Body.Close()

	format := req.Format()

	ctx.DataFromReader(http.StatusOK, audio.ContentLength, format.ContentType, audio.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", format.Filename()),
	})
}

func (h *SpeechHandler) respondGenerateError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)

	var upErr *speech.UpstreamError

	switch {
	case errors.Is(err, service.ErrUserNotRegistered):
		RespondUnauthorized(ctx, "Unauthorized.")
	case errors.Is(err, user.ErrBanned):
		RespondForbidden(ctx, "Forbidden.")
	case errors.Is(err, user.ErrTrialLimitReached):
		RespondError(ctx, http.StatusBadRequest, "trial_limit_reached", "Trial limit reached.", nil)
	case errors.As(err, &upErr):
		RespondError(ctx, upErr.StatusCode, "upstream_error", "Speech generation failed.", nil)
	case errors.Is(err, speech.ErrTimeout):
		RespondError(ctx, http.StatusGatewayTimeout, "upstream_timeout", "Speech generation timed out.", nil)
	case errors.Is(err, speech.ErrTransport):
		RespondError(ctx, http.StatusBadGateway, "upstream_unavailable", "Speech generation failed.", nil)
	default:
		RespondInternal(ctx, "Could not generate speech")
	}
}
