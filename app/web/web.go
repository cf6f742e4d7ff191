// Package web implements the JSON HTTP API of the job board
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/rs/cors"

	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/service/request"
	"github.com/umputun/jobboard/app/web/persistence"
)

// DefaultCORSOrigin is the dev server of the web client
const DefaultCORSOrigin = "http://localhost:5173"

// Server represents the web server
type Server struct {
	svc         Service
	tokens      TokenVerifier
	version     string
	corsOrigins []string
	authLimit   float64
}

// Service defines job board operations used by handlers, implemented by service.JobBoard
type Service interface {
	Register(ctx context.Context, req request.Register) (persistence.User, error)
	Login(ctx context.Context, req request.Login) (string, persistence.User, error)
	Me(ctx context.Context, userID int64) (persistence.User, error)
	CreateJob(ctx context.Context, userID int64, req request.CreateJob) (persistence.Job, error)
	GetJob(ctx context.Context, jobID int64) (persistence.Job, error)
	SearchJobs(ctx context.Context, keyword, location string) ([]persistence.Job, error)
	ApplicationStatus(ctx context.Context, userID, jobID int64) (service.ApplicationStatus, error)
	ApplyToJob(ctx context.Context, userID, jobID int64, req request.Apply) (persistence.Application, error)
	ListApplicationsForEmployer(ctx context.Context, userID int64) ([]persistence.ApplicationSummary, error)
}

// TokenVerifier checks bearer tokens and returns user id, implemented by token.Service
type TokenVerifier interface {
	Verify(raw string) (int64, error)
}

// Config holds server configuration
type Config struct {
	Service       Service
	Tokens        TokenVerifier
	Version       string
	CORSOrigins   []string // allowed origins, DefaultCORSOrigin if empty
	AuthRateLimit float64  // max requests per second per ip to /auth/login and /auth/register, 0 means 5
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("web server initialization failed: Service is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("web server initialization failed: Tokens is required")
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{DefaultCORSOrigin}
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 5
	}
	return &Server{
		svc:         cfg.Service,
		tokens:      cfg.Tokens,
		version:     cfg.Version,
		corsOrigins: cfg.CORSOrigins,
		authLimit:   cfg.AuthRateLimit,
	}, nil
}

// Run starts the web server and blocks until ctx canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	// ListenAndServe returns once shutdown starts, in-flight requests may still be running
	<-shutdownDone
	log.Printf("[INFO] web server stopped")
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("jobboard", "umputun", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		corsMiddleware.Handler,
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// credentials endpoints, rate limited per ip
	authLimiter := tollbooth.HTTPMiddleware(s.authRateLimiter())
	router.With(authLimiter).HandleFunc("POST /auth/register", s.handleRegister)
	router.With(authLimiter).HandleFunc("POST /auth/login", s.handleLogin)

	// public job board
	router.HandleFunc("GET /jobs", s.handleListJobs)
	router.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	// bearer token required
	router.Group().Route(func(auth *routegroup.Bundle) {
		auth.Use(rest.NoCache, s.authMiddleware)
		auth.HandleFunc("GET /auth/me", s.handleMe)
		auth.HandleFunc("POST /post-job", s.handleCreateJob)
		auth.HandleFunc("GET /jobs/{job_id}/application-status", s.handleApplicationStatus)
		auth.HandleFunc("POST /jobs/{job_id}/apply", s.handleApply)
		auth.HandleFunc("GET /employer/applications", s.handleEmployerApplications)
	})

	return router
}

// authRateLimiter makes limiter keyed by client ip, set by rest.RealIP
func (s *Server) authRateLimiter() *limiter.Limiter {
	lmt := tollbooth.NewLimiter(s.authLimit, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetBurst(max(1, int(s.authLimit)))
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr", IndexFromRight: 0})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"msg":"Too many requests, try again later","error":"throttled"}`)
	return lmt
}
