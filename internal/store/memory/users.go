package memory

import (
	"context"
	"fmt"
	"strings"

	"clinicdesk.org/internal/identity"
)

func (s *InMemory) uniqueUser(u *identity.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return fmt.Errorf("%w: username already taken", identity.ErrConflict)
		}
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: email already registered", identity.ErrConflict)
		}
	}
	return nil
}

func (s *InMemory) CreateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = 0
	if err := s.uniqueUser(u); err != nil {
		return err
	}
	u.ID = s.next("users")
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) GetUser(_ context.Context, id int64) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) GetUserByUsername(_ context.Context, username string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *InMemory) ListUsers(context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.users), nil
}

func (s *InMemory) UpdateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return identity.ErrNotFound
	}
	if err := s.uniqueUser(u); err != nil {
		return err
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return identity.ErrNotFound
	}
	if s.userReferenced(id) {
		return fmt.Errorf("%w: user is referenced by clinic records", identity.ErrConflict)
	}
	delete(s.users, id)
	return nil
}

// UserExists implements clinic.UserChecker.
func (s *InMemory) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *InMemory) userReferenced(id int64) bool {
	for _, d := range s.doctors {
		if d.UserID == id {
			return true
		}
	}
	for _, a := range s.appointments {
		if a.CreatedBy == id {
			return true
		}
	}
	for _, r := range s.reports {
		if r.CreatedBy == id {
			return true
		}
	}
	for _, a := range s.attachments {
		if a.UploadedBy == id {
			return true
		}
	}
	return false
}
