package attachment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "abc.pdf", strings.NewReader("%PDF-1.7"), 8, "application/pdf"))
	rc, err := st.Open(ctx, "abc.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "%PDF-1.7", string(data))

	require.NoError(t, st.Delete(ctx, "abc.pdf"))
	require.NoError(t, st.Delete(ctx, "abc.pdf"))
	_, err = st.Open(ctx, "abc.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"../etc/passwd", "a/b", "", ".hidden"} {
		err := st.Put(context.Background(), key, strings.NewReader("x"), 1, "text/plain")
		require.ErrorIs(t, err, ErrInvalidInput, key)
	}
}

type mockS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Bucket+"/"+*in.Key] = data
	m.types[*in.Bucket+"/"+*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	client := newMockS3()
	st, err := NewS3Storage(client, "clinic-files")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "k1.png", strings.NewReader("png"), 3, "image/png"))
	require.Equal(t, "image/png", client.types["clinic-files/k1.png"])

	rc, err := st.Open(ctx, "k1.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	require.Equal(t, "png", string(data))

	require.NoError(t, st.Delete(ctx, "k1.png"))
	_, err = st.Open(ctx, "k1.png")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNewS3StorageValidation(t *testing.T) {
	_, err := NewS3Storage(nil, "b")
	require.Error(t, err)
	_, err = NewS3Storage(newMockS3(), "")
	require.Error(t, err)
	_, err = NewS3Client(S3Config{})
	require.Error(t, err)
	c, err := NewS3Client(S3Config{Endpoint: "http://localhost:9000", Bucket: "b"})
	require.NoError(t, err)
	require.NotNil(t, c)
}
