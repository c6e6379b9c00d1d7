// Package attachment stores files uploaded against patients, appointments
// and reports. Blob bytes live behind Storage; metadata lives in a Store.
package attachment

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound        = errors.New("attachment: not found")
	ErrInvalidInput    = errors.New("attachment: invalid input")
	ErrUnsupportedType = errors.New("attachment: unsupported content type")
	ErrTooLarge        = errors.New("attachment: file too large")
)

// Entity types an attachment can belong to.
const (
	EntityPatient     = "patient"
	EntityAppointment = "appointment"
	EntityReport      = "report"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes int64 = 10 << 20

// AllowedTypes maps accepted MIME types to their canonical extension.
var AllowedTypes = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// Attachment is the metadata of one uploaded file.
type Attachment struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	EntityType  string    `json:"entity_type"`
	EntityID    int64     `json:"entity_id"`
	UploadedBy  int64     `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store persists attachment metadata.
type Store interface {
	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)
	ListAttachments(ctx context.Context) ([]Attachment, error)
	ListAttachmentsFor(ctx context.Context, entityType string, entityID int64) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

// Storage holds blob bytes addressed by key.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ValidEntityType reports whether t is an entity files can be attached to.
func ValidEntityType(t string) bool {
	switch t {
	case EntityPatient, EntityAppointment, EntityReport:
		return true
	}
	return false
}
