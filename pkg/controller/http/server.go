package http

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// UseCase is what the HTTP API needs from the use case layer
type UseCase interface {
	Analyze(ctx context.Context, input usecase.AnalyzeInput) (*model.AnalysisReport, error)
	Query(ctx context.Context, question string, topK int) ([]*model.ScoredChunk, error)
	SaveBaseline(ctx context.Context, name string, results []*model.GapResult) (*model.Baseline, error)
	GetBaseline(ctx context.Context, name string) (*model.Baseline, error)
	ListBaselines(ctx context.Context) ([]*model.BaselineSummary, error)
	DeleteBaseline(ctx context.Context, name string) error
}

var _ UseCase = &usecase.UseCases{}

const defaultMaxBodyBytes = 1 << 20

type Server struct {
	router       *chi.Mux
	uc           UseCase
	sentry       bool
	maxBodyBytes int64
}

type Options func(*Server)

// WithSentry reports panics to Sentry before the recoverer answers 500
func WithSentry(enabled bool) Options {
	return func(s *Server) {
		s.sentry = enabled
	}
}

// WithMaxBodyBytes limits the size of request bodies
func WithMaxBodyBytes(n int64) Options {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func New(uc UseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	if s.sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(bodyLimit(s.maxBodyBytes))
		r.Post("/analyze", s.analyzeHandler)
		r.Post("/query", s.queryHandler)

		r.Route("/baselines", func(r chi.Router) {
			r.Get("/", s.listBaselinesHandler)
			r.Post("/", s.saveBaselineHandler)
			r.Get("/{name}", s.getBaselineHandler)
			r.Delete("/{name}", s.deleteBaselineHandler)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger binds a request scoped logger to the context and logs each request once it is served
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func bodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
