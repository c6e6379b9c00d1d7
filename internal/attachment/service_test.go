package attachment_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"clinicdesk.org/internal/attachment"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/store/memory"
)

type failingStore struct {
	attachment.Store
}

func (failingStore) CreateAttachment(context.Context, *attachment.Attachment) error {
	return errors.New("db down")
}

func caller() context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{ID: 3, Role: auth.RoleNurse})
}

func pdf(body string) attachment.Upload {
	return attachment.Upload{
		FileName:    "lab results.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
		EntityType:  "patient",
		EntityID:    7,
	}
}

func TestUploadDownloadDelete(t *testing.T) {
	blobs, err := attachment.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := attachment.NewService(memory.New(), blobs, 0, nil)
	ctx := caller()

	a, err := svc.Upload(ctx, pdf("%PDF-1.7 body"))
	require.NoError(t, err)
	require.Equal(t, int64(3), a.UploadedBy)
	require.Equal(t, "lab results.pdf", a.FileName)
	require.True(t, strings.HasSuffix(a.StorageKey, ".pdf"))

	list, err := svc.ListFor(ctx, "patient", 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	other, err := svc.ListFor(ctx, "report", 7)
	require.NoError(t, err)
	require.Empty(t, other)

	meta, rc, err := svc.Open(ctx, a.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "%PDF-1.7 body", string(data))
	require.Equal(t, a.ID, meta.ID)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, attachment.ErrNotFound)
	_, err = blobs.Open(ctx, a.StorageKey)
	require.ErrorIs(t, err, attachment.ErrNotFound)
}

func TestUploadValidation(t *testing.T) {
	blobs, err := attachment.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := attachment.NewService(memory.New(), blobs, 16, nil)
	ctx := caller()

	in := pdf("x")
	in.ContentType = "application/x-msdownload"
	_, err = svc.Upload(ctx, in)
	require.ErrorIs(t, err, attachment.ErrUnsupportedType)

	_, err = svc.Upload(ctx, pdf(strings.Repeat("x", 17)))
	require.ErrorIs(t, err, attachment.ErrTooLarge)

	in = pdf("x")
	in.EntityType = "doctor"
	_, err = svc.Upload(ctx, in)
	require.ErrorIs(t, err, attachment.ErrInvalidInput)

	_, err = svc.Upload(context.Background(), pdf("x"))
	require.ErrorIs(t, err, attachment.ErrInvalidInput)

	in = pdf("x")
	in.ContentType = "Application/PDF; charset=binary"
	_, err = svc.Upload(ctx, in)
	require.NoError(t, err)
}

func TestUploadRemovesBlobWhenMetadataFails(t *testing.T) {
	dir := t.TempDir()
	blobs, err := attachment.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := attachment.NewService(failingStore{}, blobs, 0, nil)

	_, err = svc.Upload(caller(), pdf("%PDF"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
