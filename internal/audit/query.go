package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ErrInvalidFilter reports a malformed list filter.
var ErrInvalidFilter = errors.New("audit: invalid filter")

// Filter narrows a listing. Zero values mean "no constraint"; bounds are inclusive.
type Filter struct {
	Action     Action
	EntityType string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Normalize clamps the limit into [1, MaxLimit], defaulting to DefaultLimit.
func (f Filter) Normalize() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.EntityType = strings.TrimSpace(f.EntityType)
	return f
}

// Validate rejects unknown actions and inverted ranges.
func (f Filter) Validate() error {
	if f.Action != "" && !f.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidFilter, f.Action)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: start is after end", ErrInvalidFilter)
	}
	return nil
}

// Matches reports whether e passes every constraint in f except the limit.
func (f Filter) Matches(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// Reader lists persisted entries newest first (created_at desc, id desc).
type Reader interface {
	ListAudit(ctx context.Context, f Filter) ([]Entry, error)
}

// Query serves audit listings.
type Query struct {
	r Reader
}

// NewQuery constructs a Query over r.
func NewQuery(r Reader) *Query {
	return &Query{r: r}
}

// List validates and normalises f and returns matching entries, newest first.
func (q *Query) List(ctx context.Context, f Filter) ([]Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return q.r.ListAudit(ctx, f.Normalize())
}

// ParseBound parses an RFC 3339 timestamp or a YYYY-MM-DD date. A date used
// as an upper bound covers the whole day.
func ParseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidFilter, s)
	}
	if upper {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
