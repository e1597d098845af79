// Package auth provides HTTP authentication middleware accepting a static API
// key or a signed bearer token.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the header carrying a static API key
	APIKeyHeader = "X-API-Key"

	// subjectContextKey is the context key for the authenticated subject
	subjectContextKey contextKey = "subject"

	// apiKeySubject is the subject recorded for static key requests
	apiKeySubject = "api-key"
)

// Authenticator checks requests against a static API key and/or bearer
// tokens. With neither configured every request passes.
type Authenticator struct {
	apiKey string
	tokens *TokenManager
	logger *slog.Logger
}

// NewAuthenticator creates an authenticator. Either credential may be empty/nil.
func NewAuthenticator(apiKey string, tokens *TokenManager, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{apiKey: apiKey, tokens: tokens, logger: logger}
}

// Enabled reports whether any credential is configured.
func (a *Authenticator) Enabled() bool {
	return a.apiKey != "" || a.tokens != nil
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		subject, reason, err := a.authenticate(r)
		if subject == "" {
			a.logger.Warn("rejected request", "path", r.URL.Path, "reason", reason, "error", err)
			unauthorized(w, reason)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectContextKey, subject)))
	})
}

// authenticate returns the caller's subject, or an empty subject and the
// reason the request was refused. reason is safe to send to the client; err
// carries the token parser's detail for the log.
func (a *Authenticator) authenticate(r *http.Request) (string, string, error) {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		if a.apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1 {
			return apiKeySubject, "", nil
		}
		return "", "invalid API key", nil
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", "missing credentials", nil
	}
	if a.tokens == nil {
		return "", "bearer tokens not accepted", nil
	}

	claims, err := a.tokens.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return "", ErrExpiredToken.Error(), err
		}
		return "", ErrInvalidToken.Error(), err
	}
	if claims.Subject == "" {
		return "", ErrInvalidClaims.Error(), nil
	}
	return claims.Subject, "", nil
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

// SubjectFromContext returns the authenticated subject, if any
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok
}
