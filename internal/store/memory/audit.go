package memory

import (
	"cmp"
	"context"
	"slices"

	"clinicdesk.org/internal/audit"
)

// AppendAudit implements audit.Writer. Entries are never modified afterwards.
func (s *InMemory) AppendAudit(ctx context.Context, e *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.next("audit")
	cp := *e
	cp.Details = append([]byte(nil), e.Details...)
	cp.Actor = nil
	s.audit = append(s.audit, cp)
	return nil
}

// ListAudit implements audit.Reader.
func (s *InMemory) ListAudit(_ context.Context, f audit.Filter) ([]audit.Entry, error) {
	f = f.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.audit {
		if !f.Matches(e) {
			continue
		}
		if e.ActorID != nil {
			if u, ok := s.users[*e.ActorID]; ok {
				e.Actor = &audit.Actor{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
			}
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b audit.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
