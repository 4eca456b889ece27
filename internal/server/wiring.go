package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/txn2/helix/pkg/auth"
	"github.com/txn2/helix/pkg/config"
	"github.com/txn2/helix/pkg/notify"
	"github.com/txn2/helix/pkg/notify/channel"
)

// buildChannels returns the configured email and push channels. Disabled
// channels fall back to logging.
func buildChannels(cfg config.NotifyConfig, dir notify.Directory) (notify.EmailSender, notify.PushSender, error) {
	logSender := channel.NewLogSender(slog.Default())

	var email notify.EmailSender = logSender
	if cfg.Email.Enabled {
		smtpSender, err := channel.NewSMTPSender(channel.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			TLS:      cfg.Email.TLS,
		}, dir)
		if err != nil {
			return nil, nil, fmt.Errorf("creating email channel: %w", err)
		}
		email = smtpSender
	}

	var push notify.PushSender = logSender
	if cfg.Push.Enabled {
		pusher, err := channel.NewWebhookPusher(channel.WebhookConfig{
			URL:     cfg.Push.WebhookURL,
			Token:   cfg.Push.Token,
			Timeout: cfg.Push.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating push channel: %w", err)
		}
		push = pusher
	}

	return email, push, nil
}

// buildAuth returns the authentication middleware for the API and MCP
// endpoints.
func buildAuth(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	var authenticators []auth.Authenticator

	if cfg.JWT.Enabled() {
		jwtAuth, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Issuer:        cfg.JWT.Issuer,
			SigningKey:    []byte(cfg.JWT.SigningKey),
			RoleClaimPath: cfg.JWT.RoleClaimPath,
			Leeway:        cfg.JWT.Leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("creating jwt authenticator: %w", err)
		}
		authenticators = append(authenticators, jwtAuth)
	}

	if len(cfg.APIKeys) > 0 {
		keys := make([]auth.APIKey, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, auth.APIKey{Name: k.Name, Hash: k.Hash, Roles: k.Roles})
		}
		keyAuth, err := auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{Keys: keys})
		if err != nil {
			return nil, fmt.Errorf("creating api key authenticator: %w", err)
		}
		authenticators = append(authenticators, keyAuth)
	}

	return auth.Middleware(!cfg.AllowAnonymous, authenticators...), nil
}

// corsMiddleware allows the browser frontend to call the API and MCP
// endpoints from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
