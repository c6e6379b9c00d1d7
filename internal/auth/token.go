package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer = "clinic-api"
	defaultTTL    = 24 * time.Hour
)

// Claims represents the JWT claims carried by a session token. Username and
// Role are informational; authorization always uses the stored role.
type Claims struct {
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidToken, c.Subject)
	}
	return id, nil
}

// Issuer signs and verifies HS256 session tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption configures Issuer behavior.
type IssuerOption func(*Issuer) error

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) error {
		if name = strings.TrimSpace(name); name != "" {
			i.issuer = name
		}
		return nil
	}
}

// WithTTL configures token lifetime.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) error {
		if ttl <= 0 {
			return errors.New("auth: ttl must be greater than zero")
		}
		i.ttl = ttl
		return nil
	}
}

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) error {
		if now != nil {
			i.now = now
		}
		return nil
	}
}

// NewIssuer constructs an Issuer. The secret must be non-empty.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: token secret is required")
	}
	i := &Issuer{
		secret: append([]byte(nil), secret...),
		issuer: defaultIssuer,
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Issue signs a token for id and returns it with its absolute expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.ID <= 0 {
		return "", time.Time{}, errors.New("auth: identity id is required")
	}
	now := i.now().UTC()
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm, issuer and expiry. It never consults
// the identity store.
func (i *Issuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
