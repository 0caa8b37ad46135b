// Package server exposes the rounding API over HTTP. Extraction endpoints
// return structured records for review; nothing is written to a patient until
// the client posts the reviewed records to a reconcile endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/auth"
	"github.com/wardrounds/rounds-cli/internal/config"
	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/internal/store"
)

// Extractor is the slice of the extraction pipeline the handlers call.
type Extractor interface {
	LabSheet(ctx context.Context, doc extract.Document) []extract.LabResult
	MedicationList(ctx context.Context, doc extract.Document) []extract.MedicationItem
	ProblemList(ctx context.Context, doc extract.Document) []extract.ProblemItem
	CultureReport(ctx context.Context, doc extract.Document) []extract.CultureItem
	ImagingReport(ctx context.Context, doc extract.Document) []extract.ImagingItem
	EchoReport(ctx context.Context, doc extract.Document) []extract.ImagingItem
	MicroscopyReport(ctx context.Context, doc extract.Document) []extract.MicroscopyItem
	AppointmentScreen(ctx context.Context, doc extract.Document) []extract.AppointmentItem
	Handoff(ctx context.Context, text string) []extract.HandoffEntry
	EKG(ctx context.Context, doc extract.Document) *extract.EKGFields
	AdmissionNote(ctx context.Context, doc extract.Document) *extract.AdmissionFields
	DischargeSummary(ctx context.Context, doc extract.Document) *extract.DischargeFields
}

// Server holds the API dependencies.
type Server struct {
	store     store.Store
	tokens    *auth.Tokens
	extractor Extractor
	cfg       config.ServerConfig
	gridFill  bool
}

// New builds a Server.
func New(st store.Store, tokens *auth.Tokens, ex Extractor, cfg config.ServerConfig, gridFill bool) *Server {
	return &Server{store: st, tokens: tokens, extractor: ex, cfg: cfg, gridFill: gridFill}
}

// Router assembles the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.rateLimit())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Use(s.audit)

			r.Post("/auth/refresh", s.handleRefresh)

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", s.handleListPatients)
				r.Post("/", s.handleCreatePatient)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPatient)
					r.Put("/", s.handleReplacePatient)
					r.Delete("/", s.handleDeletePatient)
					r.Post("/reconcile/{kind}", s.handleReconcile)
					r.Put("/medications/{medID}", s.handleUpdateMedication)
					r.Put("/cultures/{cultureID}", s.handleUpdateCulture)
					r.Put("/imaging/{studyID}", s.handleUpdateImaging)
					r.Post("/problems", s.handlePushProblems)
					r.Post("/problems/undo", s.handleProblemsUndo)
					r.Post("/problems/redo", s.handleProblemsRedo)
					r.Get("/interactions", s.handleInteractions)
					r.Get("/export", s.handleExportLabs)
				})
			})

			r.Post("/extract/{kind}", s.handleExtract)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/users", s.handleCreateUser)
				r.Get("/audit", s.handleListAudit)
			})
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request with zap after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
