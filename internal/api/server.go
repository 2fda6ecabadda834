// Package api provides the HTTP server for LiveWell.
//
// It exposes the conversational check-in over JSON endpoints, a standalone
// PRISMA-7 scoring endpoint, and the Twilio WhatsApp webhook. All JSON
// responses use the models.APIResponse envelope.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/LiveWell/internal/flow"
	"github.com/BTreeMap/LiveWell/internal/store"
	"github.com/BTreeMap/LiveWell/internal/twiliowhatsapp"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr             string
	Sender           twiliowhatsapp.Sender
	WebhookAuthToken string // enables X-Twilio-Signature validation when set
	WebhookURL       string // public URL Twilio posts inbound messages to
	Dedup            store.DedupRepo
	ShutdownTimeout  time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithSender sets the outbound Twilio sender used by /twilio/welcome.
func WithSender(sender twiliowhatsapp.Sender) Option {
	return func(o *Opts) {
		o.Sender = sender
	}
}

// WithWebhookValidation enables signature checks on the inbound Twilio
// webhook. publicURL is the exact URL configured in the Twilio console; when
// empty it is rebuilt from the request.
func WithWebhookValidation(authToken, publicURL string) Option {
	return func(o *Opts) {
		o.WebhookAuthToken = authToken
		o.WebhookURL = publicURL
	}
}

// WithDedup drops redelivered inbound Twilio messages, keyed by MessageSid.
func WithDedup(repo store.DedupRepo) Option {
	return func(o *Opts) {
		o.Dedup = repo
	}
}

// WithShutdownTimeout sets how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.ShutdownTimeout = d
	}
}

// Server serves the LiveWell HTTP API.
type Server struct {
	checkin         *flow.CheckinService
	sender          twiliowhatsapp.Sender
	validator       *twiliowhatsapp.WebhookValidator
	webhookURL      string
	dedup           store.DedupRepo
	addr            string
	shutdownTimeout time.Duration
	router          chi.Router
}

// NewServer creates a Server around the check-in service.
func NewServer(checkin *flow.CheckinService, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		checkin:         checkin,
		sender:          cfg.Sender,
		webhookURL:      cfg.WebhookURL,
		dedup:           cfg.Dedup,
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.WebhookAuthToken != "" {
		s.validator = twiliowhatsapp.NewWebhookValidator(cfg.WebhookAuthToken)
	}
	s.router = s.routes()

	slog.Debug("Server created", "addr", s.addr, "sender_set", s.sender != nil, "webhook_validation", s.validator != nil, "dedup", s.dedup != nil)
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Router returns the HTTP handler serving every route.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/", s.indexHandler)
	r.Post("/chat", s.chatHandler)

	r.Route("/session", func(r chi.Router) {
		r.Post("/welcome", s.welcomeHandler)
		r.Post("/reset", s.resetHandler)
		r.Get("/{id}", s.getSessionHandler)
	})

	r.Post("/assessments/prisma7", s.prismaScoreHandler)
	r.Post("/assessments/prisma7/start", s.prismaStartHandler)
	r.Post("/assessments/prisma7/answer", s.prismaAnswerHandler)

	r.Route("/twilio", func(r chi.Router) {
		r.Post("/messages", s.twilioMessageHandler)
		r.Post("/welcome", s.twilioWelcomeHandler)
	})

	return r
}

// requestLogger logs each request at Debug with its chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("Server request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("LiveWell API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("failed to serve on %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("LiveWell API shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
