package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyConfig holds API key configuration.
type APIKeyConfig struct {
	Keys []APIKey
}

// APIKey is a named service credential. Only the bcrypt hash of the key
// is configured.
type APIKey struct {
	Name  string   // Display name for the key
	Hash  string   // bcrypt hash of the key value
	Roles []string // Roles assigned to this key
}

// APIKeyAuthenticator authenticates service callers by API key.
type APIKeyAuthenticator struct {
	keys []APIKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(cfg APIKeyConfig) (*APIKeyAuthenticator, error) {
	for _, k := range cfg.Keys {
		if k.Name == "" {
			return nil, errors.New("api key name is required")
		}
		if _, err := bcrypt.Cost([]byte(k.Hash)); err != nil {
			return nil, fmt.Errorf("api key %q: invalid bcrypt hash: %w", k.Name, err)
		}
	}
	return &APIKeyAuthenticator{keys: cfg.Keys}, nil
}

// Authenticate validates the API key in ctx.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context) (*Principal, error) {
	token := GetToken(ctx)
	if token == "" {
		return nil, fmt.Errorf("%w: no API key found in context", ErrUnauthenticated)
	}
	// bcrypt ignores input past 72 bytes.
	if len(token) > 72 {
		return nil, fmt.Errorf("%w: invalid API key", ErrUnauthenticated)
	}

	for _, k := range a.keys {
		if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(token)) != nil {
			continue
		}
		roles := append([]string{RoleService}, k.Roles...)
		return &Principal{
			Subject: "apikey:" + k.Name,
			Name:    k.Name,
			Roles:   roles,
			Kind:    KindService,
		}, nil
	}
	return nil, fmt.Errorf("%w: invalid API key", ErrUnauthenticated)
}

// HashKey returns the bcrypt hash to configure for key.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing api key: %w", err)
	}
	return string(hash), nil
}

// Verify interface compliance.
var _ Authenticator = (*APIKeyAuthenticator)(nil)
