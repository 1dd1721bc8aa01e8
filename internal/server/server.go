package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/syncer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"
)

// Opener loads an owner's habits and log the first time the owner is seen.
type Opener func(ctx context.Context, ownerID string) (syncer.Session, error)

type Server struct {
	cfg           *config.Config
	open          Opener
	sessionCookie *securecookie.SecureCookie
	authProviders map[string]*AuthProvider

	mu       sync.Mutex
	sessions map[string]syncer.Session
	// loads collapses concurrent first loads of one owner; other owners
	// are not held up by it.
	loads singleflight.Group
}

type Option func(*Server)

// WithAuthProviders sets the identity providers whose ID tokens open a
// session. At least one is required when auth is enabled.
func WithAuthProviders(providers map[string]*AuthProvider) Option {
	return func(s *Server) { s.authProviders = providers }
}

func New(cfg *config.Config, open Opener, opts ...Option) (*Server, error) {
	sc, err := newSessionCookie(cfg.Auth)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:           cfg,
		open:          open,
		sessionCookie: sc,
		sessions:      make(map[string]syncer.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Auth.Enabled && len(s.authProviders) == 0 {
		return nil, fmt.Errorf("auth is enabled but no identity providers are configured")
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/session", s.login)
	r.Delete("/session", s.logout)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.providerLinks)
		r.Get("/login/{id}", s.startCodeFlow)
		r.Get("/callback/{id}", s.finishCodeFlow)
		r.Get("/token", s.getAPIToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", s.listHabits)
			r.Post("/", s.createHabit)
			r.Put("/{habit_id}", s.updateHabit)
			r.Delete("/{habit_id}", s.deleteHabit)
		})

		r.Route("/log", func(r chi.Router) {
			r.Get("/today", s.getToday)
			r.Post("/today/{habit_id}/toggle", s.toggleEntry)
			r.Put("/today/{habit_id}/count", s.setEntryCount)
			r.Post("/today/{habit_id}/increment", s.incrementEntry)
			r.Get("/{date}", s.getDay)
			r.Get("/{date}/offset/{days}", s.getOffset)
		})
	})
	return r
}

// sessionFor returns the owner's session, loading it on first use. An owner
// is never loaded twice, and a slow load only delays that owner's requests.
func (s *Server) sessionFor(ctx context.Context, ownerID string) (syncer.Session, error) {
	if sess, ok := s.loadedSession(ownerID); ok {
		return sess, nil
	}

	v, err, _ := s.loads.Do(ownerID, func() (any, error) {
		// a load may have finished between the check above and Do
		if sess, ok := s.loadedSession(ownerID); ok {
			return sess, nil
		}
		start := time.Now()
		sess, err := s.open(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("open session for %s: %w", ownerID, err)
		}
		s.mu.Lock()
		s.sessions[ownerID] = sess
		s.mu.Unlock()
		UpdateActiveHabitsForUser(ownerID, len(sess.Habits()))
		logger.Info("Opened session", "owner_id", ownerID, "habits", len(sess.Habits()), "duration", time.Since(start))
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(syncer.Session), nil
}

func (s *Server) loadedSession(ownerID string) (syncer.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ownerID]
	return sess, ok
}

// Drain blocks until every session's outstanding writes have finished.
// Call it after the HTTP listener has stopped and before closing storage.
func (s *Server) Drain() {
	s.mu.Lock()
	sessions := make([]syncer.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Wait()
	}
	logger.Debug("Drained sessions", "count", len(sessions))
}
