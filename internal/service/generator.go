package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/speechgate/internal/actorctx"
	domain "github.com/geocoder89/speechgate/internal/domain/speech"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/geocoder89/speechgate/internal/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Synthesizer interface {
	SynthesizeWithin(ctx context.Context, timeout time.Duration, req domain.Request) (*speech.Audio, error)
}

type GeneratorConfig struct {
	TrialMaximum int
	Timeout      time.Duration
}

// Generator is the quota gate in front of the synthesis service.
type Generator struct {
	store repo.UserStore
	synth Synthesizer
	cfg   GeneratorConfig
	prom  *observability.Prom
	log   *slog.Logger
}

func NewGenerator(store repo.UserStore, synth Synthesizer, cfg GeneratorConfig, prom *observability.Prom, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}

	return &Generator{store: store, synth: synth, cfg: cfg, prom: prom, log: log}
}

// Generate resolves the caller, enforces ban and trial limits, calls the
// synthesis service and charges one trial on success. Logs carry the caller's
// email through actorctx. The returned audio is
// still streaming; the caller must close its Body.
//
// Errors: ErrUserNotRegistered, user.ErrBanned, user.ErrTrialLimitReached,
// ErrStore, *speech.UpstreamError, speech.ErrTimeout, speech.ErrTransport.
func (g *Generator) Generate(ctx context.Context, email string, req domain.Request) (audio *speech.Audio, err error) {
	if _, ok := actorctx.EmailFrom(ctx); !ok {
		ctx = actorctx.WithIdentity(ctx, email, "")
	}

	ctx, span := observability.Tracer().Start(ctx, "speech.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("speech.model", req.Model),
		attribute.String("speech.voice", req.Voice),
		attribute.Int("speech.input_length", len(req.Input)),
	)

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generate failed")
		}
	}()

	res := g.store.Resolve(ctx, email)

	switch res.Status {
	case repo.Found:
	case repo.NotFound:
		g.refused("not_registered")
		return nil, ErrUserNotRegistered
	default:
		g.log.ErrorContext(ctx, "resolve user failed", "op", "users.resolve", "err", res.Err)
		return nil, fmt.Errorf("%w: %v", ErrStore, res.Err)
	}

	u := res.User

	if err := user.CheckQuota(u, g.cfg.TrialMaximum); err != nil {
		if errors.Is(err, user.ErrBanned) {
			g.refused("banned")
		} else {
			g.refused("trial_limit")
		}
		return nil, err
	}

	start := time.Now()
	audio, err = g.synth.SynthesizeWithin(ctx, g.cfg.Timeout, req)
	g.observeSynthesis(start, err)

	if err != nil {
		var upErr *speech.UpstreamError

		switch {
		case errors.As(err, &upErr):
			g.log.ErrorContext(ctx, "speech service error", "status", upErr.StatusCode, "code", upErr.Code, "err", upErr.Message)
		default:
			g.log.ErrorContext(ctx, "speech service call failed", "err", err)
		}
		return nil, err
	}

	if user.ShouldCountTrial(u, g.cfg.TrialMaximum) {
		// charged against the stored record, not the snapshot read above
		charged, err := g.store.ChargeTrial(ctx, email, g.cfg.TrialMaximum)
		if err != nil {
			_ = audio.Body.Close()
			g.log.ErrorContext(ctx, "persist trial count failed", "op", "users.charge_trial", "err", err)
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}

		if charged && g.prom != nil {
			g.prom.TrialsConsumed.Inc()
		}

		span.SetAttributes(attribute.Bool("user.trial_charged", charged))
	}

	return audio, nil
}

func (g *Generator) refused(reason string) {
	if g.prom != nil {
		g.prom.GenerationsRefused.WithLabelValues(reason).Inc()
	}
}

func (g *Generator) observeSynthesis(start time.Time, err error) {
	if g.prom == nil {
		return
	}

	result := "ok"
	var upErr *speech.UpstreamError

	switch {
	case err == nil:
	case errors.As(err, &upErr):
		result = "upstream_error"
	case errors.Is(err, speech.ErrTimeout):
		result = "timeout"
	default:
		result = "transport_error"
	}

	g.prom.SynthesisDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
