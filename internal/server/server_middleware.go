package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/syncer"
	"github.com/gorilla/securecookie"
)

const (
	sessionCookieName = "session"
	sessionMaxAge     = 30 * 24 * time.Hour
)

type sessionCtxKey struct{}

func newSessionCookie(auth config.Auth) (*securecookie.SecureCookie, error) {
	hashKey := []byte(auth.HashKey)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
	}
	var blockKey []byte
	if auth.BlockKey != "" {
		blockKey = []byte(auth.BlockKey)
		switch len(blockKey) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("auth.block_key must be 16, 24 or 32 bytes, got %d", len(blockKey))
		}
	} else {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	if hashKey == nil || blockKey == nil {
		return nil, fmt.Errorf("failed to generate secure cookie keys")
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionMaxAge.Seconds()))
	return sc, nil
}

// sessionMiddleware resolves the request's owner and loads that owner's
// session into the request context. With auth disabled every request acts
// as the configured default owner; otherwise the owner comes from the signed
// session cookie, or the same value sent as a Bearer token. Sessions are only
// issued after an identity provider's ID token has been verified.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := s.cfg.Auth.DefaultOwner
		if s.cfg.Auth.Enabled {
			var ok bool
			ownerID, ok = s.ownerFromRequest(r)
			if !ok {
				RecordAuthEvent("verification", "failed")
				writeError(w, http.StatusUnauthorized, "not logged in")
				return
			}
			RecordAuthEvent("verification", "success")
		}

		sess, err := s.sessionFor(r.Context(), ownerID)
		if err != nil {
			logger.Error("Failed to open session", "owner_id", ownerID, "error", err)
			writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, sess)))
		userRequestsTotal.WithLabelValues(ownerID, routePattern(r), r.Method).Inc()
	})
}

func (s *Server) ownerFromRequest(r *http.Request) (string, bool) {
	var token string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		token = c.Value
	} else if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		token = strings.TrimPrefix(ah, "Bearer ")
	}
	if token == "" {
		logger.Debug("No session cookie or bearer token")
		return "", false
	}

	var ownerID string
	if err := s.sessionCookie.Decode(sessionCookieName, token, &ownerID); err != nil {
		logger.Debug("Failed to decode session token", "error", err)
		return "", false
	}
	return ownerID, ownerID != ""
}

func sessionFromContext(r *http.Request) syncer.Session {
	return r.Context().Value(sessionCtxKey{}).(syncer.Session)
}
