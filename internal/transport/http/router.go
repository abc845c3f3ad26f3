package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/comments-service/internal/transport/ws"
	"github.com/cwrk-planet/comments-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Handler        *Handler
	WSServer       *ws.Server
	Auth           func(http.Handler) http.Handler
	RateLimit      func(http.Handler) http.Handler
	AllowedOrigins []string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// live-канал: без таймаута, соединение долгоживущее
	r.Get("/ws", d.WSServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(d.Auth)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/messages", func(rm chi.Router) {
			rm.With(d.RateLimit).Post("/", d.Handler.CreateMessage)
			rm.Get("/{subjectId}", d.Handler.ListMessages)
		})
	})

	// health + metrics
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
