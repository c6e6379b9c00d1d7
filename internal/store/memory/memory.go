// Package memory implements every store interface in process memory. It
// backs local development when no database is configured and the HTTP tests.
package memory

import (
	"cmp"
	"slices"
	"sync"

	"clinicdesk.org/internal/attachment"
	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/clinic"
	"clinicdesk.org/internal/identity"
)

// InMemory is safe for concurrent use. Reads return copies.
type InMemory struct {
	mu  sync.RWMutex
	seq map[string]int64

	users        map[int64]*identity.User
	patients     map[int64]*clinic.Patient
	doctors      map[int64]*clinic.Doctor
	appointments map[int64]*clinic.Appointment
	reports      map[int64]*clinic.Report
	attachments  map[int64]*attachment.Attachment
	audit        []audit.Entry
}

// New creates an empty store.
func New() *InMemory {
	return &InMemory{
		seq:          make(map[string]int64),
		users:        make(map[int64]*identity.User),
		patients:     make(map[int64]*clinic.Patient),
		doctors:      make(map[int64]*clinic.Doctor),
		appointments: make(map[int64]*clinic.Appointment),
		reports:      make(map[int64]*clinic.Report),
		attachments:  make(map[int64]*attachment.Attachment),
	}
}

// next returns the next id for table. Callers hold mu.
func (s *InMemory) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// sortedValues copies map values ordered by key.
func sortedValues[T any](m map[int64]*T) []T {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[int64])
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, *m[k])
	}
	return out
}

var (
	_ identity.Store   = (*InMemory)(nil)
	_ clinic.Store     = (*InMemory)(nil)
	_ attachment.Store = (*InMemory)(nil)
	_ audit.Writer     = (*InMemory)(nil)
	_ audit.Reader     = (*InMemory)(nil)
)
