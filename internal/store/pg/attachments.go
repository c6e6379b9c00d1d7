package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicdesk.org/internal/attachment"
)

const attachmentColumns = `id, file_name, storage_key, content_type, size_bytes, entity_type, entity_id, uploaded_by, uploaded_at`

func scanAttachment(row scanner) (*attachment.Attachment, error) {
	var a attachment.Attachment
	if err := row.Scan(&a.ID, &a.FileName, &a.StorageKey, &a.ContentType, &a.Size, &a.EntityType, &a.EntityID, &a.UploadedBy, &a.UploadedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAttachment(ctx context.Context, a *attachment.Attachment) error {
	err := s.db.QueryRowContext(ctx, `
		insert into file_attachments (file_name, storage_key, content_type, size_bytes, entity_type, entity_id, uploaded_by, uploaded_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, a.FileName, a.StorageKey, a.ContentType, a.Size, a.EntityType, a.EntityID, a.UploadedBy, a.UploadedAt).Scan(&a.ID)
	if err != nil {
		if pgCode(err) == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: uploader does not exist", attachment.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, id int64) (*attachment.Attachment, error) {
	a, err := scanAttachment(s.db.QueryRowContext(ctx, `select `+attachmentColumns+` from file_attachments where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attachment.ErrNotFound
	}
	return a, err
}

func (s *Store) queryAttachments(ctx context.Context, query string, args ...any) ([]attachment.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []attachment.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) ListAttachments(ctx context.Context) ([]attachment.Attachment, error) {
	return s.queryAttachments(ctx, `select `+attachmentColumns+` from file_attachments order by uploaded_at desc, id desc`)
}

func (s *Store) ListAttachmentsFor(ctx context.Context, entityType string, entityID int64) ([]attachment.Attachment, error) {
	return s.queryAttachments(ctx, `
		select `+attachmentColumns+`
		from file_attachments
		where entity_type = $1 and entity_id = $2
		order by uploaded_at desc, id desc
	`, entityType, entityID)
}

func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from file_attachments where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, attachment.ErrNotFound)
}
