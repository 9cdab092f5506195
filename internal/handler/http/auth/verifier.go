package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity facts taken from a verified bearer token.
type Claims struct {
	Subject string
	Tier    string // raw claim; empty when absent
	Scopes  []string
}

// TokenVerifier checks a bearer token against the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// sessionClaims is the JWT payload issued by the identity provider.
type sessionClaims struct {
	Tier  string   `json:"tier,omitempty"`
	Scope []string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens that carry sub and exp, and
// optionally an issuer.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// JWTOption customises a JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) JWTOption {
	return func(v *JWTVerifier) { v.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking exp.
func WithLeeway(d time.Duration) JWTOption {
	return func(v *JWTVerifier) { v.leeway = d }
}

// WithTimeFunc overrides the clock used for exp.
func WithTimeFunc(now func() time.Time) JWTOption {
	return func(v *JWTVerifier) { v.now = now }
}

func NewJWTVerifier(secret string, opts ...JWTOption) (*JWTVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	v := &JWTVerifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return Claims{}, fmt.Errorf("verify session token: %w", err)
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("verify session token: missing sub claim")
	}
	return Claims{Subject: claims.Subject, Tier: claims.Tier, Scopes: claims.Scope}, nil
}

// DevUserID is the identity every bearer token maps to in dev mode.
const DevUserID = "mock-user-123"

// DevVerifier accepts any non-empty bearer token as DevUserID on the free
// tier. It exists for local development without an identity provider.
type DevVerifier struct{}

// NewDevVerifier logs a warning so dev mode is never enabled silently.
func NewDevVerifier() DevVerifier {
	slog.Warn("bearer token verification is DISABLED; every bearer token maps to the dev user",
		slog.String("user_id", DevUserID))
	return DevVerifier{}
}

func (DevVerifier) Verify(_ context.Context, token string) (Claims, error) {
	if token == "" {
		return Claims{}, errors.New("empty bearer token")
	}
	return Claims{Subject: DevUserID, Tier: "free"}, nil
}
