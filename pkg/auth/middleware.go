package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Authenticator validates the credential carried in the context.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Principal, error)
}

// Chain tries multiple authenticators in order.
type Chain []Authenticator

// Authenticate returns the first successful principal.
func (c Chain) Authenticate(ctx context.Context) (*Principal, error) {
	var lastErr error
	for _, a := range c {
		p, err := a.Authenticate(ctx)
		if err == nil && p != nil {
			return p, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: no authenticator accepted the credential", ErrUnauthenticated)
}

// Middleware extracts a Bearer token or X-API-Key header, authenticates
// it and stores the Principal in the request context. Requests without
// credentials pass through unless required is set. Invalid credentials
// are always rejected.
func Middleware(required bool, authenticators ...Authenticator) func(http.Handler) http.Handler {
	chain := Chain(authenticators)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				if required {
					unauthorized(w, "missing authentication token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithToken(r.Context(), token)
			p, err := chain.Authenticate(ctx)
			if err != nil {
				slog.Debug("authentication failed", "path", r.URL.Path, "error", err)
				unauthorized(w, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// RequireRole rejects requests whose principal holds none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil {
				unauthorized(w, "authentication required")
				return
			}
			if !p.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return r.Header.Get("X-API-Key")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
