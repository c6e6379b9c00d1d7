package memory

import (
	"cmp"
	"context"
	"slices"

	"clinicdesk.org/internal/attachment"
)

func newestFirst(a, b attachment.Attachment) int {
	if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func (s *InMemory) CreateAttachment(_ context.Context, a *attachment.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next("attachments")
	cp := *a
	s.attachments[a.ID] = &cp
	return nil
}

func (s *InMemory) GetAttachment(_ context.Context, id int64) (*attachment.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attachments[id]
	if !ok {
		return nil, attachment.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) ListAttachments(context.Context) ([]attachment.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortedValues(s.attachments)
	slices.SortStableFunc(out, newestFirst)
	return out, nil
}

func (s *InMemory) ListAttachmentsFor(_ context.Context, entityType string, entityID int64) ([]attachment.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []attachment.Attachment
	for _, a := range sortedValues(s.attachments) {
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, newestFirst)
	return out, nil
}

func (s *InMemory) DeleteAttachment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[id]; !ok {
		return attachment.ErrNotFound
	}
	delete(s.attachments, id)
	return nil
}
