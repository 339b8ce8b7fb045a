package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"memorymount/entity"
	"memorymount/lib/media"
	"memorymount/lib/sl"
)

// Storage is the object-store boundary: one bucket-backed provider
// behind list/put/delete plus presigned downloads.
type Storage interface {
	List(ctx context.Context, prefix string) ([]entity.StoredFile, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Uploads coordinates trophy media against object storage. A nil
// Storage is a valid configuration: every call then fails with
// entity.ErrMissingConfig instead of panicking at startup.
type Uploads struct {
	st  Storage
	log *slog.Logger
}

func New(st Storage, log *slog.Logger) *Uploads {
	return &Uploads{
		st:  st,
		log: log.With(sl.Module("uploads")),
	}
}

// Store writes one file into a trophy folder. The video path keeps a
// single file per folder: any objects already under the key are
// removed before the new one is written.
func (u *Uploads) Store(ctx context.Context, folderKey, fileName string, body io.Reader, size int64) (*entity.StoredFile, error) {
	if u.st == nil {
		return nil, entity.ErrMissingConfig
	}
	if folderKey == "" || fileName == "" || body == nil {
		return nil, entity.ErrMissingParameters
	}

	if media.Kind(fileName) == entity.KindVideo {
		existing, err := u.st.List(ctx, folderKey)
		if err != nil {
			return nil, err
		}
		for _, f := range existing {
			if err = u.st.Delete(ctx, f.Key); err != nil {
				return nil, err
			}
		}
		if len(existing) > 0 {
			u.log.Info("replaced previous upload",
				slog.String("folder", folderKey),
				slog.Int("removed", len(existing)))
		}
	}

	key := folderKey + "/" + fileName
	url, err := u.st.Put(ctx, key, body, size, "")
	if err != nil {
		return nil, err
	}

	return &entity.StoredFile{
		Key:  key,
		Name: fileName,
		Size: size,
		Url:  url,
	}, nil
}

// List returns the folder contents or the storage failure itself.
// An unreachable store and an empty folder are distinct outcomes.
func (u *Uploads) List(ctx context.Context, folderKey string) ([]entity.StoredFile, error) {
	if u.st == nil {
		return nil, entity.ErrMissingConfig
	}
	if folderKey == "" {
		return nil, entity.ErrMissingParameters
	}
	return u.st.List(ctx, folderKey)
}

// Delete removes one object by key. The key must sit inside the
// folder, so a caller cannot reach across trophies.
func (u *Uploads) Delete(ctx context.Context, folderKey, key string) error {
	if u.st == nil {
		return entity.ErrMissingConfig
	}
	if folderKey == "" || key == "" {
		return entity.ErrMissingParameters
	}
	if !strings.HasPrefix(key, folderKey+"/") {
		return fmt.Errorf("%w: key outside folder", entity.ErrMissingParameters)
	}
	return u.st.Delete(ctx, key)
}
