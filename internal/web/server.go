// Package web serves the task list over HTTP for the signed-in user.
// Every route passes through the route guard before its handler runs.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"tasklink/internal/credential"
	"tasklink/internal/guard"
	"tasklink/internal/service"
	"tasklink/internal/session"
	"tasklink/internal/viewmodel"
)

// CookieName holds the session id issued at sign-in.
const CookieName = "tasklink.session_token"

// MetricsPath is public so scrapers need no session.
const MetricsPath = "/metrics"

// Sessions loads the stored session record.
type Sessions interface {
	Load() (session.Record, error)
}

// Options configures a Server.
type Options struct {
	Sessions Sessions
	Bridge   *credential.Bridge

	// Connect builds a task store client for one session.
	Connect func(tokens oauth2.TokenSource) (service.Service, error)

	// PageSize is the limit sent with list calls. Zero uses the default.
	PageSize int

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	rules  guard.Rules
	router *mux.Router
	logger *slog.Logger

	mu     sync.Mutex
	boards map[string]*viewmodel.TaskList // by session id
}

// NewServer wires the routes. Sessions, Bridge and Connect are required.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Bridge == nil || opts.Connect == nil {
		return nil, errors.New("web: sessions, bridge and connect are required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	rules := guard.DefaultRules()
	rules.Public = append(rules.Public, MetricsPath)

	s := &Server{
		opts:   opts,
		rules:  rules,
		router: mux.NewRouter(),
		logger: opts.Logger,
		boards: make(map[string]*viewmodel.TaskList),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.guard)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc(guard.SignInPath, s.handleSignInPage).Methods(http.MethodGet)
	r.HandleFunc(guard.SignInPath, s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc(guard.SignUpPath, s.handleSignUpPage).Methods(http.MethodGet)
	r.HandleFunc("/logout", s.handleSignOut).Methods(http.MethodPost)
	r.Handle(MetricsPath, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc(guard.LandingPath, s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc(guard.LandingPath+"/tasks", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc(guard.LandingPath+"/tasks/{taskID}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc(guard.LandingPath+"/tasks/{taskID}/toggle", s.handleToggle).Methods(http.MethodPatch)
	r.HandleFunc(guard.LandingPath+"/tasks/{taskID}", s.handleDelete).Methods(http.MethodDelete)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// guard redirects requests the route rules do not allow. Only the presence
// of the session cookie is checked here.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie(CookieName)
		d := s.rules.Decide(r.URL.Path, err == nil)
		if !d.Allowed() {
			http.Redirect(w, r, d.Target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// board returns the view-model of the request's session, creating and
// loading it on first use. A stale or unknown cookie is cleared.
func (s *Server) board(w http.ResponseWriter, r *http.Request) (*viewmodel.TaskList, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		http.Redirect(w, r, guard.SignInPath, http.StatusSeeOther)
		return nil, false
	}

	rec, err := s.opts.Sessions.Load()
	if err != nil || rec.ID != cookie.Value {
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			s.logger.Warn("Failed to load session", slog.String("error", err.Error()))
		}
		clearCookie(w)
		writeDetail(w, http.StatusUnauthorized, "session expired, sign in again")
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if vm, ok := s.boards[rec.ID]; ok {
		return vm, true
	}
	svc, err := s.opts.Connect(s.opts.Bridge.TokenSource(rec.Identity))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	vm := viewmodel.New(svc, rec.Identity.UserID,
		viewmodel.WithPageSize(s.opts.PageSize),
		viewmodel.WithLogger(s.logger),
	)
	s.boards[rec.ID] = vm
	return vm, true
}

func (s *Server) forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, sessionID)
}

func setCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
