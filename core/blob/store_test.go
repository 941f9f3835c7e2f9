package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"resource-exporter/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/state")

	_, err := store.Get(ctx, "cache/tags.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "cache/tags.json", []byte(`{"a":1}`)))
	data, err := store.Get(ctx, "cache/tags.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	exists, err := afero.Exists(fs, "/state/cache/tags.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temporary file should be renamed away")

	require.NoError(t, store.Put(ctx, "cache/tags.json", []byte(`{"a":2}`)))
	data, err = store.Get(ctx, "cache/tags.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	require.NoError(t, store.Delete(ctx, "cache/tags.json"))
	require.NoError(t, store.Delete(ctx, "cache/tags.json"), "deleting twice is fine")
	_, err = store.Get(ctx, "cache/tags.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObjectStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", mock.Anything, "bucket", "state/checkpoint.json", mock.Anything).
			Return(io.NopCloser(strings.NewReader(`{"resources":[]}`)), nil)

		data, err := NewObjectStore(client, "bucket", "state").Get(ctx, "checkpoint.json")
		require.NoError(t, err)
		assert.Equal(t, `{"resources":[]}`, string(data))
		client.AssertExpectations(t)
	})

	t.Run("MissingOnRead", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", mock.Anything, "bucket", "checkpoint.json", mock.Anything).
			Return(io.NopCloser(iotest.ErrReader(minio.ErrorResponse{Code: "NoSuchKey"})), nil)

		_, err := NewObjectStore(client, "bucket", "").Get(ctx, "checkpoint.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("OtherError", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", mock.Anything, "bucket", "state/x", mock.Anything).
			Return(nil, errors.New("connection refused"))

		_, err := NewObjectStore(client, "bucket", "state").Get(ctx, "x")
		assert.ErrorContains(t, err, "connection refused")
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestObjectStore_PutDelete(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	payload := []byte(`{"k":"v"}`)

	client.On("PutObject", mock.Anything, "bucket", "state/k.json", mock.Anything, int64(len(payload)), mock.Anything).
		Return(minio.UploadInfo{}, nil)
	client.On("RemoveObject", mock.Anything, "bucket", "state/k.json", mock.Anything).
		Return(minio.ErrorResponse{Code: "NoSuchKey"})

	store := NewObjectStore(client, "bucket", "state")
	require.NoError(t, store.Put(ctx, "k.json", payload))
	require.NoError(t, store.Delete(ctx, "k.json"))
	client.AssertExpectations(t)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Backend: BackendFile, Dir: "/tmp/x"}, nil, "")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(Config{Backend: BackendStorage}, nil, "bucket")
	assert.Error(t, err)

	s, err = New(Config{Backend: BackendStorage, Prefix: "p"}, new(mocks.Client), "bucket")
	require.NoError(t, err)
	assert.IsType(t, &ObjectStore{}, s)

	_, err = New(Config{Backend: "redis"}, nil, "")
	assert.Error(t, err)
}
