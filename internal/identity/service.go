package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/validate"
)

// ErrNoIssuer is returned by Login when the service was built without a
// token issuer, as the administrative CLI does.
var ErrNoIssuer = errors.New("identity: no token issuer configured")

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

// Service implements account operations on top of a Store.
type Service struct {
	store    Store
	tokens   TokenIssuer
	audit    audit.Recorder
	validate *validate.Validator
	cost     int
	now      func() time.Time

	// dummyHash is compared against on unknown usernames so both login
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// Option configures Service behavior.
type Option func(*Service)

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. A nil recorder discards audit events; a
// nil issuer disables Login.
func NewService(store Store, tokens TokenIssuer, rec audit.Recorder, opts ...Option) *Service {
	if rec == nil {
		rec = audit.Discard{}
	}
	s := &Service{store: store, tokens: tokens, audit: rec, validate: validate.New(), cost: 10, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if hash, err := auth.HashPassword("clinicdesk-dummy", s.cost); err == nil {
		s.dummyHash = hash
	}
	return s
}

// Register validates and creates a user, then records the creation.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in = in.normalize()
	if err := s.check(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	now := s.now().UTC()
	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         auth.Role(in.Role),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.recordSnapshot(ctx, audit.ActionCreate, u)
	return u, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		if s.dummyHash != "" {
			_ = auth.VerifyPassword(s.dummyHash, password)
		}
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.tokens == nil {
		return nil, ErrNoIssuer
	}
	token, expiresAt, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetUser(ctx, id)
}

// List returns every user ordered by id.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// Update applies a partial update. When nothing changes the store is not
// touched and no audit entry is written.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*User, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := s.check(in); err != nil {
		return nil, err
	}
	after := *before

	if in.Username != "" {
		after.Username = in.Username
	}
	if in.Email != "" {
		after.Email = in.Email
	}
	if in.Role != "" {
		after.Role = auth.Role(in.Role)
	}
	if in.FirstName != "" {
		after.FirstName = in.FirstName
	}
	if in.LastName != "" {
		after.LastName = in.LastName
	}

	changes, err := audit.DiffRecords(before, &after, "updated_at")
	if err != nil {
		return nil, err
	}
	if in.Password != "" && auth.VerifyPassword(before.PasswordHash, in.Password) != nil {
		hash, err := auth.HashPassword(in.Password, s.cost)
		if err != nil {
			return nil, fmt.Errorf("identity: hash password: %w", err)
		}
		after.PasswordHash = hash
		changes["password"] = audit.Change{From: audit.Redacted, To: audit.Redacted}
	}
	if len(changes) == 0 {
		return before, nil
	}

	after.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, &after); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.NewEvent(ctx, audit.ActionUpdate, audit.EntityUser, after.ID, changes))
	return &after, nil
}

// Delete removes a user and records its last known state.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.recordSnapshot(ctx, audit.ActionDelete, before)
	return nil
}

// LookupIdentity implements auth.IdentityLookup.
func (s *Service) LookupIdentity(ctx context.Context, id int64) (auth.Identity, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Identity{}, auth.ErrUnknownIdentity
		}
		return auth.Identity{}, err
	}
	return u.Identity(), nil
}

// recordSnapshot records the full user. The recorder serialises synchronously
// so later mutation of u cannot leak into the entry.
func (s *Service) recordSnapshot(ctx context.Context, action audit.Action, u *User) {
	s.audit.Record(ctx, audit.NewEvent(ctx, action, audit.EntityUser, u.ID, u))
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
