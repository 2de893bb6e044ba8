// Package server exposes the pipeline over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
)

// Pipeline is the orchestrator surface the API drives.
type Pipeline interface {
	Start(ctx context.Context, params pipeline.Params) (string, error)
	Stop()
	Running() bool
	Progress() pipeline.Progress
	Leads() []model.Lead
	Lead(id string) (model.Lead, error)
	Clear() error
	Profile() model.Profile
	SetProfile(p model.Profile) error
	Dispatch(ctx context.Context, leadID string) error
}

// Credits is the credit meter surface the API reads and tops up.
type Credits interface {
	Balance() int
	TopUp(n int) (int, error)
}

// Server serves the HTTP API.
type Server struct {
	pipe    Pipeline
	credits Credits
	origins []string

	// runCtx bounds background runs started over HTTP. Request contexts end
	// with the response, so runs must not inherit them.
	runCtx context.Context

	nowFunc func() time.Time
}

// New creates a Server. Runs started through the API live until runCtx is
// done.
func New(runCtx context.Context, pipe Pipeline, credits Credits, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		pipe:    pipe,
		credits: credits,
		origins: allowedOrigins,
		runCtx:  runCtx,
		nowFunc: time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/sectors", s.sectors)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.listLeads)
			r.Delete("/", s.clearLeads)
			r.Get("/{id}", s.getLead)
			r.Post("/{id}/automation", s.dispatchLead)
		})

		r.Post("/runs", s.startRun)
		r.Post("/runs/stop", s.stopRun)

		r.Get("/credits", s.getCredits)
		r.Post("/credits/topup", s.topUpCredits)

		r.Get("/profile", s.getProfile)
		r.Put("/profile", s.putProfile)

		r.Get("/export", s.export)
	})
	return r
}

// ListenAndServe serves on port until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server: listen")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
