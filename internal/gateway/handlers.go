package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/identity"
)

const (
	sessionCookie = "sessionId"
	authCookie    = "auth-token"

	cookieMaxAge = 7 * 24 * 60 * 60 // seconds
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeFailure writes the error body for a typed failure, with the status
// derived from its kind.
func writeFailure(w http.ResponseWriter, f *domain.Failure) {
	writeJSON(w, f.Kind.HTTPStatus(), map[string]any{
		"error": f.Message,
		"kind":  f.Kind,
	})
}

// credentials pulls the identity cookies off a request.
func credentials(r *http.Request) identity.Credentials {
	var creds identity.Credentials
	if c, err := r.Cookie(sessionCookie); err == nil {
		creds.SessionID = c.Value
	}
	if c, err := r.Cookie(authCookie); err == nil {
		creds.AuthToken = c.Value
	}
	return creds
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.Gateway.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
	})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// handleLogin issues (or echoes) an anonymous session. The prompt count in
// the response comes from the ledger; the cookie carries only the opaque id.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sessionID := credentials(r).SessionID
	if sessionID == "" {
		sessionID = identity.NewSessionID()
		s.setCookie(w, sessionCookie, sessionID)
	}

	rec, err := s.ledger.Get(r.Context(), domain.Identity(sessionID))
	if err != nil {
		s.log.Error().Err(err).Msg("login: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "login failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"sessionId":        sessionID,
		"promptCount":      rec.PromptCount,
		"remainingPrompts": rec.Remaining(),
	})
}

type registerRequest struct {
	Email string `json:"email"`
}

// handleRegister creates an email-keyed account and sets the auth token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindValidationError, Message: "invalid request body"})
		return
	}
	if !identity.ValidEmail(req.Email) {
		writeFailure(w, &domain.Failure{Kind: domain.KindValidationError, Message: "valid email is required"})
		return
	}

	exists, err := s.ledger.Exists(r.Context(), domain.Identity(req.Email))
	if err != nil {
		s.log.Error().Err(err).Msg("register: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "registration failed"})
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "Account already exists. Please sign in.",
		})
		return
	}

	rec, err := s.ledger.Get(r.Context(), domain.Identity(req.Email))
	if err != nil {
		s.log.Error().Err(err).Msg("register: ledger create failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "registration failed"})
		return
	}

	token := identity.EncodeToken(req.Email, time.Now().UnixMilli())
	s.setCookie(w, authCookie, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"email":            req.Email,
			"promptCount":      rec.PromptCount,
			"remainingPrompts": rec.Remaining(),
		},
	})
}

// handleAuthStatus reports the caller's session state and counts.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity.Resolve(credentials(r))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"isLoggedIn": false,
		})
		return
	}

	rec, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Msg("status: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "failed to get auth status"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"isLoggedIn":       true,
		"identity":         string(id),
		"promptCount":      rec.PromptCount,
		"remainingPrompts": rec.Remaining(),
	})
}

// handleAuthUser returns account info for the auth-token identity. Session
// cookies are not enough here; the route is about registered accounts.
func (s *Server) handleAuthUser(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	if creds.AuthToken == "" {
		writeFailure(w, &domain.Failure{Kind: domain.KindUnauthenticated, Message: "not authenticated"})
		return
	}

	email, err := identity.DecodeToken(creds.AuthToken)
	if err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindUnauthenticated, Message: "invalid token"})
		return
	}

	exists, err := s.ledger.Exists(r.Context(), domain.Identity(email))
	if err != nil {
		s.log.Error().Err(err).Msg("user: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "failed to load user"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not found"})
		return
	}

	rec, err := s.ledger.Get(r.Context(), domain.Identity(email))
	if err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "failed to load user"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"email":            email,
			"promptCount":      rec.PromptCount,
			"remainingPrompts": rec.Remaining(),
		},
	})
}

// handlePromptsCheck reports whether the caller may send a prompt. Read
// only: the spend is committed by the completion path, never here.
func (s *Server) handlePromptsCheck(w http.ResponseWriter, r *http.Request) {
	id, err := identity.Resolve(credentials(r))
	if err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindUnauthenticated, Message: "not authenticated"})
		return
	}

	ok, rec, err := s.ledger.CanSendPrompt(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Msg("prompts: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "failed to check prompt limit"})
		return
	}

	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":       "Prompt limit reached",
			"promptCount": rec.PromptCount,
			"limit":       rec.Cap,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"promptCount":      rec.PromptCount,
		"remainingPrompts": rec.Remaining(),
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	ModelID  string `json:"modelId,omitempty"`
}

// handleChat runs one completion through the gateway.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindValidationError, Message: "invalid request body"})
		return
	}

	id, err := identity.Resolve(credentials(r))
	if err != nil {
		writeFailure(w, &domain.Failure{Kind: domain.KindUnauthenticated, Message: "no active session found"})
		return
	}

	result, rec := s.gw.Handle(r.Context(), domain.CompletionRequest{
		Identity:   id,
		PromptText: req.Message,
		Provider:   req.Provider,
		ModelID:    req.ModelID,
	})
	if !result.OK() {
		writeFailure(w, result.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"response":         result.Text,
		"provider":         req.Provider,
		"promptCount":      rec.PromptCount,
		"remainingPrompts": rec.Remaining(),
	})
}

// handleChatStatus mirrors the auth status for the chat page.
func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity.Resolve(credentials(r))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"isLoggedIn": false,
		})
		return
	}

	rec, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Msg("chat status: ledger read failed")
		writeFailure(w, &domain.Failure{Kind: domain.KindStorageError, Message: "failed to get chat status"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"isLoggedIn":       true,
		"promptCount":      rec.PromptCount,
		"remainingPrompts": rec.Remaining(),
	})
}
