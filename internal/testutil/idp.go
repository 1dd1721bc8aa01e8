// Package testutil provides a local OpenID provider for tests: it signs ID
// tokens with its own RSA key and serves a token endpoint for the code flow.
package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/oauth2"
)

const ClientID = "habits-test"

type Issuer struct {
	// URL is both the iss claim and the base of the token endpoint.
	URL string

	key *rsa.PrivateKey
	t   testing.TB

	mu    sync.Mutex
	codes map[string]string
}

func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	iss := &Issuer{key: key, t: t, codes: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", iss.serveToken)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	iss.URL = srv.URL
	return iss
}

// Verifier checks tokens the way a discovered provider would, against this
// issuer's public key and ClientID.
func (i *Issuer) Verifier() *oidc.IDTokenVerifier {
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&i.key.PublicKey}}
	return oidc.NewVerifier(i.URL, keys, &oidc.Config{ClientID: ClientID})
}

func (i *Issuer) OAuth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     ClientID,
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  i.URL + "/authorize",
			TokenURL: i.URL + "/token",
		},
		RedirectURL: redirectURL,
		Scopes:      []string{oidc.ScopeOpenID},
	}
}

// IDToken returns a token for subject valid for ttl; a negative ttl gives
// an expired token.
func (i *Issuer) IDToken(subject string, ttl time.Duration) string {
	now := time.Now()
	return i.Sign(map[string]any{
		"iss": i.URL,
		"aud": ClientID,
		"sub": subject,
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(ttl).Unix(),
	})
}

// Sign signs arbitrary claims with this issuer's key.
func (i *Issuer) Sign(claims map[string]any) string {
	i.t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: i.key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		i.t.Fatalf("new signer: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		i.t.Fatalf("marshal claims: %v", err)
	}
	jws, err := signer.Sign(payload)
	if err != nil {
		i.t.Fatalf("sign: %v", err)
	}
	raw, err := jws.CompactSerialize()
	if err != nil {
		i.t.Fatalf("serialize: %v", err)
	}
	return raw
}

// Code registers a one-time authorization code that the token endpoint
// exchanges for an ID token for subject.
func (i *Issuer) Code(subject string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	code := fmt.Sprintf("code-%d", len(i.codes)+1)
	i.codes[code] = subject
	return code
}

func (i *Issuer) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("code_verifier") == "" {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	code := r.PostForm.Get("code")
	i.mu.Lock()
	subject, ok := i.codes[code]
	delete(i.codes, code)
	i.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "access-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     i.IDToken(subject, time.Hour),
	})
}
