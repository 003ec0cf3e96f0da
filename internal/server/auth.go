package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// CallerHeader carries the caller id when a trusted proxy authenticates
// requests upstream.
const CallerHeader = "X-Caller-Id"

// Authenticator resolves the verified caller id behind a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

var (
	errMissingAuth   = errors.New("missing authorization header")
	errInvalidScheme = errors.New("invalid authorization scheme")
	errInvalidToken  = errors.New("invalid token")
	errMissingCaller = errors.New("missing " + CallerHeader + " header")
)

// TokenAuthenticator maps static bearer tokens to caller ids.
type TokenAuthenticator struct {
	tokens map[string]string
}

func NewTokenAuthenticator(tokens map[string]string) *TokenAuthenticator {
	return &TokenAuthenticator{tokens: tokens}
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", errMissingAuth
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errInvalidScheme
	}
	provided := strings.TrimPrefix(auth, "Bearer ")

	// Compare against every entry so timing does not reveal which matched.
	var caller string
	for token, id := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
			caller = id
		}
	}
	if caller == "" {
		return "", errInvalidToken
	}
	return caller, nil
}

// HeaderAuthenticator trusts the caller id set by an upstream proxy.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	caller := strings.TrimSpace(r.Header.Get(CallerHeader))
	if caller == "" {
		return "", errMissingCaller
	}
	return caller, nil
}

// NewAuthenticator returns a TokenAuthenticator when tokens are configured
// and a HeaderAuthenticator otherwise.
func NewAuthenticator(tokens map[string]string) Authenticator {
	if len(tokens) > 0 {
		return NewTokenAuthenticator(tokens)
	}
	return HeaderAuthenticator{}
}

type callerKey struct{}

// callerFrom returns the caller id AuthMiddleware stored on the context.
func callerFrom(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}

// AuthMiddleware resolves the caller for every request and rejects those
// without one. The caller id is available to handlers via callerFrom.
func AuthMiddleware(authn Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := authn.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}
