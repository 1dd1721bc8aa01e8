package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/brk3/habitlog/internal/logger"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

// login trades an identity provider's ID token for a session. The token is
// verified against the provider's keys; the owner id comes from its issuer
// and subject, never from the request body.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	providerID := req.Provider
	if providerID == "" && len(s.authProviders) == 1 {
		for id := range s.authProviders {
			providerID = id
		}
	}
	if req.IDToken == "" {
		RecordAuthEvent("login", "missing_token")
		writeError(w, http.StatusUnauthorized, "id_token is required")
		return
	}

	ownerID, err := s.verifiedOwner(r.Context(), providerID, req.IDToken)
	if err != nil {
		logger.Debug("ID token verification failed", "provider", providerID, "error", err)
		RecordAuthEvent("login", "failed")
		writeError(w, http.StatusUnauthorized, "invalid id_token")
		return
	}

	token, err := s.startSession(w, r, ownerID)
	if err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
		RecordAuthEvent("login", "error")
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	RecordAuthEvent("login", "success")
	logger.Info("Owner logged in", "owner_id", ownerID, "provider", providerID)

	if err := writeJSON(w, http.StatusOK, SessionResponse{OwnerID: ownerID, Token: token}); err != nil {
		logger.Error("Failed to serialize session response", "error", err)
	}
}

// startSession sets the signed session cookie for ownerID and returns its
// value, which also works as a Bearer token.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, ownerID string) (string, error) {
	token, err := s.sessionCookie.Encode(sessionCookieName, ownerID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (s *Server) providerLinks(w http.ResponseWriter, _ *http.Request) {
	ids := make([]string, 0, len(s.authProviders))
	for id, p := range s.authProviders {
		if p.oauth2 != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Login</h1>`)
	for _, id := range ids {
		fmt.Fprintf(w, `<form action="/auth/login/%s"><button>%s</button></form>`,
			url.PathEscape(id), html.EscapeString(s.authProviders[id].name))
	}
}

// startCodeFlow redirects to the provider with a PKCE challenge.
func (s *Server) startCodeFlow(w http.ResponseWriter, r *http.Request) {
	prov, ok := s.authProviders[chi.URLParam(r, "id")]
	if !ok || prov.oauth2 == nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	verifier := make([]byte, 48)
	if _, err := rand.Read(verifier); err != nil {
		writeError(w, http.StatusInternalServerError, "pkce gen failed")
		return
	}
	verifierStr := base64.RawURLEncoding.EncodeToString(verifier)
	hash := sha256.Sum256([]byte(verifierStr))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		writeError(w, http.StatusInternalServerError, "state gen failed")
		return
	}
	st := hex.EncodeToString(stateBytes)

	// only relative return paths
	ret := r.URL.Query().Get("return")
	if u, err := url.Parse(ret); ret == "" || err != nil || u.IsAbs() || u.Host != "" {
		ret = "/"
	}

	prov.state.Put(st, authState{Verifier: verifierStr, Return: ret, ExpireAt: time.Now().Add(authStateTTL)})
	authURL := prov.oauth2.AuthCodeURL(
		st,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// finishCodeFlow exchanges the code, verifies the returned ID token and
// starts a session for its owner.
func (s *Server) finishCodeFlow(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	prov, ok := s.authProviders[providerID]
	if !ok || prov.oauth2 == nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}
	st := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if st == "" || code == "" {
		writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	saved, ok := prov.state.GetAndDelete(st)
	if !ok || saved.Verifier == "" {
		RecordAuthEvent("callback", "bad_state")
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	tok, err := prov.oauth2.Exchange(r.Context(), code, oauth2.SetAuthURLParam("code_verifier", saved.Verifier))
	if err != nil {
		logger.Warn("Code exchange failed", "provider", providerID, "error", err)
		RecordAuthEvent("callback", "exchange_failed")
		writeError(w, http.StatusBadGateway, "code exchange failed")
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		RecordAuthEvent("callback", "missing_token")
		writeError(w, http.StatusBadGateway, "no id_token in response")
		return
	}
	ownerID, err := s.verifiedOwner(r.Context(), providerID, rawIDToken)
	if err != nil {
		logger.Debug("ID token verification failed", "provider", providerID, "error", err)
		RecordAuthEvent("callback", "failed")
		writeError(w, http.StatusUnauthorized, "invalid id_token")
		return
	}

	if _, err := s.startSession(w, r, ownerID); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	RecordAuthEvent("callback", "success")
	logger.Info("Owner logged in", "owner_id", ownerID, "provider", providerID)
	http.Redirect(w, r, saved.Return, http.StatusFound)
}

// getAPIToken hands a browser session's token to the CLI.
func (s *Server) getAPIToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	var ownerID string
	if err := s.sessionCookie.Decode(sessionCookieName, c.Value, &ownerID); err != nil || ownerID == "" {
		writeError(w, http.StatusUnauthorized, "invalid session cookie")
		return
	}
	if err := writeJSON(w, http.StatusOK, SessionResponse{OwnerID: ownerID, Token: c.Value}); err != nil {
		logger.Error("Failed to serialize session response", "error", err)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	RecordAuthEvent("logout", "success")
	w.WriteHeader(http.StatusNoContent)
}
