package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// user store
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// identity + speech
	AuthResults        *prometheus.CounterVec
	SynthesisDuration  *prometheus.HistogramVec
	TrialsConsumed     prometheus.Counter
	GenerationsRefused *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "speechgate",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "speechgate",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "speechgate",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "speechgate",
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "User store operation latency by logical op.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
			},
			[]string{"op", "status"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "speechgate",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "User store errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "speechgate",
				Subsystem: "auth",
				Name:      "results_total",
				Help:      "Bearer token validation outcomes.",
			},
			[]string{"result"}, // result=ok|invalid|incomplete
		),
		SynthesisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "speechgate",
				Subsystem: "speech",
				Name:      "synthesis_duration_seconds",
				Help:      "Time until the synthesis service answered, by outcome.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"result"}, // result=ok|upstream_error|timeout|transport_error
		),
		TrialsConsumed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "speechgate",
				Subsystem: "speech",
				Name:      "trials_consumed_total",
				Help:      "Trial generations charged to limited users.",
			},
		),
		GenerationsRefused: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "speechgate",
				Subsystem: "speech",
				Name:      "refused_total",
				Help:      "Generation requests refused before the synthesis call.",
			},
			[]string{"reason"}, // reason=not_registered|banned|trial_limit
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.StoreOpDuration, p.StoreErrorsTotal,
		p.AuthResults, p.SynthesisDuration, p.TrialsConsumed, p.GenerationsRefused,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
