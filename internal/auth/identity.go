package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated covers every credential failure; callers never learn which check failed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the caller as seen by the identity provider. It is not the stored User row.
type Identity struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// DisplayName joins given and family name.
func (i *Identity) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(i.GivenName) + " " + strings.TrimSpace(i.FamilyName))
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the auth middleware, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil && id.ID != ""
}

// Authenticator resolves the caller of a request. It may write cookies when a session is refreshed.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error)
}

// Chain accepts either a bearer token or a session, never both. A request carrying
// an Authorization: Bearer header is judged on the token alone.
type Chain struct {
	Bearer  *JWKSVerifier
	Session *SessionFlow
}

func (c *Chain) Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	if token, ok := bearerToken(r); ok {
		if c.Bearer == nil {
			return nil, ErrUnauthenticated
		}
		return c.Bearer.Verify(r.Context(), token)
	}
	if c.Session == nil {
		return nil, ErrUnauthenticated
	}
	return c.Session.Authenticate(w, r)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}
