package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "wot_http_request_duration_seconds",
	Help:    "HTTP request duration by route and status",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "status"})

type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	// RequestTimeout bounds a whole request, upstream fan-out included.
	RequestTimeout time.Duration
}

// Router builds the HTTP surface.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route(prefix, func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ready", h.Ready)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			r.Get("/predict/win", h.PredictWin)
			r.Post("/predict/win", h.PredictWin)
			r.Get("/predict/features", h.PredictFeatures)
			r.Post("/predict/features", h.PredictFeatures)

			r.Get("/wg/account/list", h.AccountList)
			r.Get("/tomato/player/overall/{server}/{account_id}", h.PlayerOverall)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		h.logger.Infow("HTTP request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
