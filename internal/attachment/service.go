package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/ids"
)

// Upload describes one incoming file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	EntityType  string
	EntityID    int64
}

// Service coordinates blob storage and metadata.
type Service struct {
	store    Store
	blobs    Storage
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. maxBytes <= 0 selects DefaultMaxBytes.
func NewService(store Store, blobs Storage, maxBytes int64, logger *slog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, blobs: blobs, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// MaxBytes returns the per-file size limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// NormalizeContentType strips parameters and lower-cases a MIME type.
func NormalizeContentType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Upload stores the blob and then its metadata. If the metadata write fails
// the blob is removed again.
func (s *Service) Upload(ctx context.Context, in Upload) (*Attachment, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no authenticated caller", ErrInvalidInput)
	}
	in.EntityType = strings.ToLower(strings.TrimSpace(in.EntityType))
	if !ValidEntityType(in.EntityType) {
		return nil, fmt.Errorf("%w: entity type must be patient, appointment or report", ErrInvalidInput)
	}
	if in.EntityID <= 0 {
		return nil, fmt.Errorf("%w: entity id required", ErrInvalidInput)
	}
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	ct := NormalizeContentType(in.ContentType)
	ext, ok := AllowedTypes[ct]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	if in.Size <= 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if in.Size > s.maxBytes {
		return nil, ErrTooLarge
	}

	a := &Attachment{
		FileName:    name,
		StorageKey:  ids.NewKey(ext),
		ContentType: ct,
		Size:        in.Size,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		UploadedBy:  id.ID,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.blobs.Put(ctx, a.StorageKey, io.LimitReader(in.Body, in.Size), in.Size, ct); err != nil {
		return nil, err
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), a.StorageKey); derr != nil {
			s.logger.Warn("orphaned attachment blob", "key", a.StorageKey, "error", derr)
		}
		return nil, err
	}
	return a, nil
}

// Get returns attachment metadata.
func (s *Service) Get(ctx context.Context, id int64) (*Attachment, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetAttachment(ctx, id)
}

// List returns every attachment, newest first.
func (s *Service) List(ctx context.Context) ([]Attachment, error) {
	return s.store.ListAttachments(ctx)
}

// ListFor returns the attachments of one entity, newest first.
func (s *Service) ListFor(ctx context.Context, entityType string, entityID int64) ([]Attachment, error) {
	entityType = strings.ToLower(strings.TrimSpace(entityType))
	if !ValidEntityType(entityType) {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, entityType)
	}
	return s.store.ListAttachmentsFor(ctx, entityType, entityID)
}

// Open returns the metadata and a reader over the blob. The caller closes it.
func (s *Service) Open(ctx context.Context, id int64) (*Attachment, io.ReadCloser, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, a.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// Delete removes the blob (best effort) and then the metadata row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, a.StorageKey); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("delete attachment blob", "key", a.StorageKey, "error", err)
	}
	return s.store.DeleteAttachment(ctx, id)
}
