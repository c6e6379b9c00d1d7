package clinic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/validate"
)

// Service validates clinic records before they reach the Store.
type Service struct {
	store    Store
	users    UserChecker
	validate *validate.Validator
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, users UserChecker) *Service {
	return &Service{store: store, users: users, validate: validate.New(), now: time.Now}
}

func (s *Service) stamp() time.Time { return s.now().UTC() }

func callerID(ctx context.Context) (int64, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok || id.ID <= 0 {
		return 0, fmt.Errorf("%w: no authenticated caller", ErrInvalidInput)
	}
	return id.ID, nil
}

// check runs the struct tag rules on a merged record.
func (s *Service) check(rec any) error {
	if err := s.validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// keep returns next when it is non-empty, otherwise cur.
func keep(cur, next string) string {
	if v := strings.TrimSpace(next); v != "" {
		return v
	}
	return cur
}

func keepID(cur, next int64) int64 {
	if next > 0 {
		return next
	}
	return cur
}
