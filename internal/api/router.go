// Package api - REST-поверхность движка обсуждений на chi.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/matjip-discussion/internal/auth"
	"github.com/UkralStul/matjip-discussion/internal/dataloader"
	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/ratelimit"
)

const defaultPingInterval = 10 * time.Second

// Options - зависимости HTTP-слоя.
type Options struct {
	Service   *discussion.Service
	Observer  *events.CommentObserver
	Validator auth.TokenValidator
	Limiter   ratelimit.Limiter
	Logger    *slog.Logger

	PingInterval time.Duration
}

// Server держит зависимости обработчиков.
type Server struct {
	svc          *discussion.Service
	observer     *events.CommentObserver
	log          *slog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewRouter(opts Options) http.Handler {
	s := &Server{
		svc:          opts.Service,
		observer:     opts.Observer,
		log:          opts.Logger,
		pingInterval: opts.PingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.pingInterval <= 0 {
		s.pingInterval = defaultPingInterval
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware(opts.Validator, s.writeError))
	router.Use(dataloader.Middleware(opts.Service.Store()))

	router.Get("/healthz", s.health)

	router.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(opts.Limiter, s.log, s.tooManyRequests))

		r.Route("/{space:board|blog}/items", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/", s.createItem)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getItem)
				r.Put("/", s.updateItem)
				r.Delete("/", s.deleteItem)
				r.Get("/recommendations", s.recommendState)
				r.Post("/recommendations", s.toggleRecommendation)
				r.Post("/reports", s.reportItem)
				r.Get("/comments", s.listComments)
				r.Post("/comments", s.addComment)
				r.Get("/comments/stream", s.streamComments)
			})
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Put("/", s.editComment)
			r.Delete("/", s.deleteComment)
			r.Post("/reports", s.reportComment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Route("/{space:board|blog}/items", func(r chi.Router) {
				r.Get("/", s.adminListItems)
				r.Patch("/{id}/hide", s.hideItem)
				r.Patch("/{id}/restore", s.restoreItem)
				r.Patch("/{id}/pin", s.pinItem)
				r.Patch("/{id}/unpin", s.unpinItem)
			})
			r.Get("/reports", s.listReports)
			r.Get("/reports/{id}", s.getReport)
			r.Patch("/reports/{id}", s.resolveReport)
		})
	})

	return router
}

// adminOnly отсекает не-администраторов до обработчика.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.FromContext(r.Context())
		if p == nil {
			s.writeError(w, r, errAuthRequired)
			return
		}
		if !p.IsAdmin() {
			s.writeError(w, r, errAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().Ping(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
