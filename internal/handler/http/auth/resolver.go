// Package auth turns request credentials into an entity.AuthContext.
//
// Worker credentials (X-Worker-Token) take precedence over bearer tokens; a
// wrong worker token is rejected outright and never falls through to bearer
// verification.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"parcel-gateway/internal/domain/entity"
)

const (
	WorkerTokenHeader = "X-Worker-Token"
	WorkerIDHeader    = "X-Worker-ID"
)

// UnauthorizedError is a credential failure. Message is safe to return to
// the caller.
type UnauthorizedError struct {
	Message string
	Err     error
}

func (e *UnauthorizedError) Error() string { return e.Message }
func (e *UnauthorizedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, entity.ErrUnauthorized) match.
func (e *UnauthorizedError) Is(target error) bool { return target == entity.ErrUnauthorized }

// Resolver builds the AuthContext of a request.
type Resolver struct {
	workerTokens [][]byte
	verifier     TokenVerifier
}

// NewResolver accepts any of workerTokens as the internal secret. Empty
// tokens are ignored, so with none configured every worker token fails.
func NewResolver(workerTokens []string, verifier TokenVerifier) *Resolver {
	r := &Resolver{verifier: verifier}
	for _, t := range workerTokens {
		if t = strings.TrimSpace(t); t != "" {
			r.workerTokens = append(r.workerTokens, []byte(t))
		}
	}
	return r
}

// Resolve applies, in order: worker token, bearer token, anonymous.
func (res *Resolver) Resolve(r *http.Request) (entity.AuthContext, error) {
	if token := r.Header.Get(WorkerTokenHeader); token != "" {
		if !res.validWorkerToken(token) {
			return entity.AuthContext{}, &UnauthorizedError{Message: "invalid worker token"}
		}
		workerID := strings.TrimSpace(r.Header.Get(WorkerIDHeader))
		if workerID == "" {
			workerID = entity.WorkerIDUnknown
		}
		return entity.AuthContext{WorkerID: workerID, Tier: entity.TierInternal}, nil
	}

	if bearer, ok := bearerToken(r.Header.Get("Authorization")); ok {
		if res.verifier == nil {
			return entity.AuthContext{}, &UnauthorizedError{Message: "invalid or expired session"}
		}
		claims, err := res.verifier.Verify(r.Context(), bearer)
		if err != nil {
			return entity.AuthContext{}, &UnauthorizedError{Message: "invalid or expired session", Err: err}
		}
		return entity.AuthContext{
			UserID: claims.Subject,
			Tier:   userTier(r, claims),
			Scopes: claims.Scopes,
		}, nil
	}

	return entity.Anonymous(), nil
}

// userTier maps the tier claim for a bearer user. A missing or unknown
// claim is free, and a bearer token can never grant the internal tier.
func userTier(r *http.Request, claims Claims) entity.Tier {
	if claims.Tier == "" {
		return entity.TierFree
	}
	tier, ok := entity.ParseTier(claims.Tier)
	if !ok || tier == entity.TierInternal || tier == entity.TierAnonymous {
		slog.WarnContext(r.Context(), "unusable tier claim, using free",
			slog.String("user_id", claims.Subject),
			slog.String("tier_claim", claims.Tier))
		return entity.TierFree
	}
	return tier
}

func (res *Resolver) validWorkerToken(token string) bool {
	got := []byte(token)
	match := 0
	for _, want := range res.workerTokens {
		match |= subtle.ConstantTimeCompare(got, want)
	}
	return match == 1
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
