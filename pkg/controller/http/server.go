package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/secmon-lab/aegisrisk/pkg/usecase"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
	"github.com/secmon-lab/aegisrisk/pkg/utils/safe"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/risks", func(r chi.Router) {
			r.Post("/", s.createRisk)
			r.Get("/", s.listRisks)

			r.Route("/{riskID}", func(r chi.Router) {
				r.Get("/", s.getRisk)
				r.Delete("/", s.deleteRisk)
				r.Post("/assess", s.assessRisk)
				r.Post("/decision", s.decideRisk)
				r.Delete("/decision", s.resetDecision)
				r.Post("/actions/{order}", s.updateAction)
				r.Post("/followup", s.runFollowUp)
				r.Post("/questionnaires", s.issueQuestionnaire)
			})
		})

		r.Route("/questionnaires/{token}", func(r chi.Router) {
			r.Get("/", s.getQuestionnaire)
			r.Post("/", s.completeQuestionnaire)
		})

		r.Get("/cache/stats", s.cacheStats)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, []byte(`{"status":"ok"}`))
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
