package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/timelyagent/timely/internal/calendar"
	"github.com/timelyagent/timely/internal/callstore"
	"github.com/timelyagent/timely/internal/gmail"
	"github.com/timelyagent/timely/internal/instrumentation"
	"github.com/timelyagent/timely/internal/logging"
	"github.com/timelyagent/timely/internal/telephony"
)

// OAuthProvider is the part of the Google OAuth web flow the server
// drives.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client
}

// Caller places and inspects outbound calls.
type Caller interface {
	PlaceCall(ctx context.Context, req telephony.CallRequest) (*telephony.CallResult, error)
	GetConversation(ctx context.Context, id string) (*telephony.Conversation, error)
}

// CalendarService is the calendar access used for scheduling context and
// follow-up events.
type CalendarService interface {
	Timezone(ctx context.Context) (string, error)
	Availability(ctx context.Context) ([]calendar.BusySlot, error)
	CreateEvent(ctx context.Context, in calendar.EventInput) (string, error)
}

// MailboxFactory builds a mailbox client from a session's authenticated
// HTTP client.
type MailboxFactory func(ctx context.Context, httpClient *http.Client) (gmail.MessageSource, error)

// CalendarFactory builds a calendar client from a session's authenticated
// HTTP client.
type CalendarFactory func(ctx context.Context, httpClient *http.Client) (CalendarService, error)

// Config holds the dependencies for the HTTP API server.
type Config struct {
	Sessions  *SessionManager
	OAuth     OAuthProvider
	Completer gmail.Completer
	Caller    Caller
	Store     *callstore.Store

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger

	// NewMailbox and NewCalendar default to the real Google clients.
	NewMailbox  MailboxFactory
	NewCalendar CalendarFactory

	// WebDir serves a static front end when it exists.
	WebDir string
}

// Server is the HTTP API for the calling assistant.
type Server struct {
	router      chi.Router
	sessions    *SessionManager
	oauth       OAuthProvider
	completer   gmail.Completer
	caller      Caller
	store       *callstore.Store
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	health      *HealthChecker
	newMailbox  MailboxFactory
	newCalendar CalendarFactory
	now         func() time.Time

	// callOwners maps call IDs to the session that initiated them so the
	// webhook path can use that session's Google token.
	ownersMu   sync.Mutex
	callOwners map[string]string
}

// NewServer wires the HTTP API.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth provider is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.Caller == nil {
		return nil, fmt.Errorf("voice client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("call store is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newMailbox := cfg.NewMailbox
	if newMailbox == nil {
		newMailbox = func(ctx context.Context, httpClient *http.Client) (gmail.MessageSource, error) {
			return gmail.NewClient(ctx, httpClient)
		}
	}
	newCalendar := cfg.NewCalendar
	if newCalendar == nil {
		newCalendar = func(ctx context.Context, httpClient *http.Client) (CalendarService, error) {
			return calendar.NewClient(ctx, httpClient)
		}
	}

	s := &Server{
		sessions:    cfg.Sessions,
		oauth:       cfg.OAuth,
		completer:   cfg.Completer,
		caller:      cfg.Caller,
		store:       cfg.Store,
		metrics:     metrics,
		logger:      logging.WithService(logger, "server"),
		health:      NewHealthChecker(),
		newMailbox:  newMailbox,
		newCalendar: newCalendar,
		now:         time.Now,
		callOwners:  make(map[string]string),
	}
	s.router = s.routes(cfg.WebDir)
	return s, nil
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the health checker so the lifecycle code can flip
// readiness.
func (s *Server) Health() *HealthChecker {
	return s.health
}

func (s *Server) routes(webDir string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", s.health.LivenessHandler())
	r.Get("/readyz", s.health.ReadinessHandler())

	r.Get("/auth/status", s.handleAuthStatus)
	r.Get("/auth/google", s.handleAuthLogin)
	r.Get("/auth/google/callback", s.handleAuthCallback)

	r.Post("/prepare-lookup", s.handlePrepareLookup)
	r.Post("/prepare-scheduling", s.handlePrepareScheduling)
	r.Post("/get-email-details", s.handleGetEmailDetails)
	r.Post("/initiate-call", s.handleInitiateCall)
	r.Post("/call-webhook", s.handleCallWebhook)
	r.Get("/get-status/{callID}", s.handleGetStatus)
	r.Get("/get-summary/{callID}", s.handleGetSummary)

	if webDir != "" {
		if _, err := os.Stat(webDir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(webDir)))
		}
	}

	return r
}

// metricsMiddleware records a counter and duration per request against
// the matched route pattern, not the raw path.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, ww.Status(), time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) setCallOwner(callID, sessionID string) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	s.callOwners[callID] = sessionID
}

func (s *Server) callOwner(callID string) (string, bool) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	id, ok := s.callOwners[callID]
	return id, ok
}

func (s *Server) dropCallOwner(callID string) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	delete(s.callOwners, callID)
}
