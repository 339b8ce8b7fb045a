package uploads

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorymount/entity"
)

type fakeStorage struct {
	objects map[string][]byte
	listErr error
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) List(_ context.Context, prefix string) ([]entity.StoredFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []entity.StoredFile
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix+"/") {
			out = append(out, entity.StoredFile{
				Key:  key,
				Name: key[strings.LastIndex(key, "/")+1:],
				Size: int64(len(data)),
				Url:  "https://store.test/" + key,
			})
		}
	}
	return out, nil
}

func (f *fakeStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "https://store.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func newUploads(st Storage) *Uploads {
	return New(st, slog.Default())
}

func TestStore_VideoReplacesExisting(t *testing.T) {
	st := newFakeStorage()
	st.objects["trophy-1/old.mp4"] = []byte("old bytes")
	u := newUploads(st)

	file, err := u.Store(context.Background(), "trophy-1", "new.mp4", strings.NewReader("new bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "trophy-1/new.mp4", file.Key)
	assert.Equal(t, "https://store.test/trophy-1/new.mp4", file.Url)

	// single file per folder: the old video is gone
	_, exists := st.objects["trophy-1/old.mp4"]
	assert.False(t, exists)
	assert.Len(t, st.objects, 1)
}

func TestStore_ImageDoesNotReplace(t *testing.T) {
	st := newFakeStorage()
	st.objects["trophy-1/first.jpg"] = []byte("x")
	u := newUploads(st)

	_, err := u.Store(context.Background(), "trophy-1", "second.jpg", strings.NewReader("y"), 1)
	require.NoError(t, err)
	assert.Len(t, st.objects, 2)
}

func TestStore_MissingParameters(t *testing.T) {
	u := newUploads(newFakeStorage())

	_, err := u.Store(context.Background(), "", "a.mp4", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, entity.ErrMissingParameters)

	_, err = u.Store(context.Background(), "trophy-1", "", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, entity.ErrMissingParameters)

	_, err = u.Store(context.Background(), "trophy-1", "a.mp4", nil, 1)
	assert.ErrorIs(t, err, entity.ErrMissingParameters)
}

func TestStore_NoStorageConfigured(t *testing.T) {
	u := newUploads(nil)
	_, err := u.Store(context.Background(), "trophy-1", "a.mp4", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, entity.ErrMissingConfig)
}

func TestList_SurfacesStorageErrors(t *testing.T) {
	st := newFakeStorage()
	st.listErr = errors.New("connection refused")
	u := newUploads(st)

	_, err := u.List(context.Background(), "trophy-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestList_EmptyFolder(t *testing.T) {
	u := newUploads(newFakeStorage())
	files, err := u.List(context.Background(), "trophy-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDelete_KeyMustSitInFolder(t *testing.T) {
	st := newFakeStorage()
	st.objects["trophy-1/a.jpg"] = []byte("x")
	st.objects["trophy-2/b.jpg"] = []byte("y")
	u := newUploads(st)

	err := u.Delete(context.Background(), "trophy-1", "trophy-2/b.jpg")
	assert.ErrorIs(t, err, entity.ErrMissingParameters)
	assert.Len(t, st.objects, 2)

	require.NoError(t, u.Delete(context.Background(), "trophy-1", "trophy-1/a.jpg"))
	assert.Len(t, st.objects, 1)
}
