package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const authStateTTL = 5 * time.Minute

// AuthProvider is one identity provider. The verifier checks ID tokens; the
// oauth2 config drives the browser code flow and may be nil when only
// POST /session is used.
type AuthProvider struct {
	name     string
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	state    *StateStore
}

func NewAuthProvider(name string, verifier *oidc.IDTokenVerifier, oauth2Cfg *oauth2.Config) *AuthProvider {
	return &AuthProvider{
		name:     name,
		oauth2:   oauth2Cfg,
		verifier: verifier,
		state:    NewStateStore(authStateTTL),
	}
}

// ConfigureOIDCProviders runs discovery against every configured issuer.
func ConfigureOIDCProviders(ctx context.Context, providers []config.OIDCProvider) (map[string]*AuthProvider, error) {
	logger.Info("Configuring OIDC providers", "count", len(providers))
	out := make(map[string]*AuthProvider, len(providers))
	for _, p := range providers {
		logger.Debug("Setting up OIDC provider", "id", p.ID, "name", p.Name, "issuer", p.IssuerURL)
		prov, err := oidc.NewProvider(ctx, p.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("oidc provider %s: %w", p.ID, err)
		}
		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID}
		}
		out[p.ID] = NewAuthProvider(p.Name, prov.Verifier(&oidc.Config{ClientID: p.ClientID}), &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Endpoint:     prov.Endpoint(),
			RedirectURL:  p.RedirectURL,
			Scopes:       scopes,
		})
		logger.Info("OIDC provider configured", "id", p.ID, "name", p.Name)
	}
	return out, nil
}

// verifiedOwner checks rawIDToken with the named provider and returns the
// owner id it identifies.
func (s *Server) verifiedOwner(ctx context.Context, providerID, rawIDToken string) (string, error) {
	prov, ok := s.authProviders[providerID]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", providerID)
	}
	idTok, err := prov.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", err
	}
	if idTok.Subject == "" {
		return "", fmt.Errorf("id token has no subject")
	}
	return ownerIDFor(idTok.Issuer, idTok.Subject), nil
}

// ownerIDFor keys owners on issuer and subject together, so two providers
// that hand out the same subject never share a log.
func ownerIDFor(issuer, subject string) string {
	sum := sha256.Sum256([]byte(issuer + "|" + subject))
	return fmt.Sprintf("user-%x", sum[:8])
}

// StateStore holds in-flight code flow state (PKCE verifier and return
// path) keyed by the state parameter.
type StateStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]authState
}

type authState struct {
	Verifier string
	Return   string
	ExpireAt time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{ttl: ttl, m: make(map[string]authState)}
}

// Put stores v and drops entries that have expired.
func (s *StateStore) Put(key string, v authState) {
	now := time.Now()
	if v.ExpireAt.IsZero() {
		v.ExpireAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, old := range s.m {
		if now.After(old.ExpireAt) {
			delete(s.m, k)
		}
	}
	s.m[key] = v
}

// GetAndDelete returns the state for key once; a second call or an expired
// entry reports false.
func (s *StateStore) GetAndDelete(key string) (authState, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	if ok && time.Now().After(v.ExpireAt) {
		return authState{}, false
	}
	return v, ok
}
