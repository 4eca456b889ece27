package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRoleClaimPath is where roles are read from when unset.
const DefaultRoleClaimPath = "roles"

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected issuer claim in the JWT.
	Issuer string

	// SigningKey is the HMAC key used to verify JWT signatures.
	SigningKey []byte

	// RoleClaimPath is the dot-separated path to the roles array,
	// e.g. "roles" or "realm_access.roles".
	RoleClaimPath string

	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

// JWTAuthenticator validates HS256 user tokens.
type JWTAuthenticator struct {
	cfg    JWTConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(cfg JWTConfig) (*JWTAuthenticator, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("jwt signing key is required")
	}
	if cfg.RoleClaimPath == "" {
		cfg.RoleClaimPath = DefaultRoleClaimPath
	}

	a := &JWTAuthenticator{cfg: cfg, now: time.Now}
	a.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
	)
	return a, nil
}

// Authenticate validates the bearer token in ctx.
func (a *JWTAuthenticator) Authenticate(ctx context.Context) (*Principal, error) {
	token := GetToken(ctx)
	if token == "" {
		return nil, fmt.Errorf("%w: no token found in context", ErrUnauthenticated)
	}

	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.cfg.SigningKey, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: invalid token: %w", ErrUnauthenticated, err)
	}

	sub := claimString(claims, "sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrUnauthenticated)
	}

	return &Principal{
		Subject:  sub,
		TenantID: claimString(claims, "tenant_id"),
		Name:     claimString(claims, "name"),
		Email:    claimString(claims, "email"),
		Roles:    claimStrings(claims, a.cfg.RoleClaimPath),
		Kind:     KindUser,
	}, nil
}

// Issue signs a token for p valid for ttl. Roles are written at the
// top-level "roles" claim.
func (a *JWTAuthenticator) Issue(p Principal, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"iss": a.cfg.Issuer,
		"sub": p.Subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if p.TenantID != "" {
		claims["tenant_id"] = p.TenantID
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if len(p.Roles) > 0 {
		claims["roles"] = p.Roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify interface compliance.
var _ Authenticator = (*JWTAuthenticator)(nil)
