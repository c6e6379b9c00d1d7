package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// IdentityLookup resolves a user id to its current identity. Implementations
// return ErrUnknownIdentity when the user no longer exists.
type IdentityLookup interface {
	LookupIdentity(ctx context.Context, id int64) (Identity, error)
}

// Gate authenticates requests by verifying the bearer token and reloading the
// user it names, so deleted users and role changes take effect immediately.
type Gate struct {
	tokens TokenVerifier
	lookup IdentityLookup
}

// NewGate constructs a Gate.
func NewGate(tokens TokenVerifier, lookup IdentityLookup) *Gate {
	return &Gate{tokens: tokens, lookup: lookup}
}

// Authenticate resolves the Authorization header value to an Identity.
func (g *Gate) Authenticate(ctx context.Context, header string) (Identity, error) {
	raw, err := ExtractBearer(header)
	if err != nil {
		return Identity{}, err
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return Identity{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, err
	}
	id, err := g.lookup.LookupIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return Identity{}, ErrUnknownIdentity
		}
		return Identity{}, fmt.Errorf("auth: lookup identity %d: %w", userID, err)
	}
	return id, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>" value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrMissingCredential)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: invalid authorization scheme", ErrMissingCredential)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrMissingCredential)
	}
	return token, nil
}
