package entity

// WorkerIDUnknown is the worker identity used when a valid worker token
// arrives without an X-Worker-ID header.
const WorkerIDUnknown = "unknown"

// AuthContext is the resolved identity of a single request. It is built once by
// the auth middleware and read by everything downstream; it is passed by value
// so no holder can mutate another's copy.
type AuthContext struct {
	UserID   string
	WorkerID string
	Tier     Tier
	Scopes   []string
}

// Anonymous returns the default context for requests without credentials.
func Anonymous() AuthContext {
	return AuthContext{Tier: TierAnonymous}
}

// IsInternal reports whether the context carries worker credentials.
func (a AuthContext) IsInternal() bool {
	return a.Tier == TierInternal
}

// Identifier picks the rate-limit key for this caller: the user, then the
// worker, then the client network address.
func (a AuthContext) Identifier(remoteAddr string) string {
	switch {
	case a.UserID != "":
		return a.UserID
	case a.WorkerID != "":
		return a.WorkerID
	default:
		return remoteAddr
	}
}

// UpstreamUserID is the value forwarded to backends in X-User-ID.
func (a AuthContext) UpstreamUserID() string {
	if a.UserID == "" {
		return "anonymous"
	}
	return a.UserID
}

// HasScope reports whether scope was granted to the caller.
func (a AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
