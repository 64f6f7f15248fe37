package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"judgeworker/internal/common/storage"
	appErr "judgeworker/pkg/errors"
)

// Source provides the raw catalog documents.
type Source interface {
	ReadDocument(ctx context.Context, name string) ([]byte, error)
}

// LocalSource reads catalog documents from a directory on disk.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a source rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (s *LocalSource) ReadDocument(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.Wrapf(err, appErr.ConfigMissing, "catalog document %s not found", name)
		}
		return nil, appErr.Wrapf(err, appErr.ConfigInvalid, "read catalog document %s", name)
	}
	return data, nil
}

// ObjectSource reads catalog documents from an object storage bucket under
// a key prefix.
type ObjectSource struct {
	store  storage.ObjectStorage
	bucket string
	prefix string
}

// NewObjectSource creates a source over an object store.
func NewObjectSource(store storage.ObjectStorage, bucket, prefix string) *ObjectSource {
	return &ObjectSource{store: store, bucket: bucket, prefix: prefix}
}

func (s *ObjectSource) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}
	reader, err := s.store.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigMissing, "catalog document %s not found", key)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigInvalid, "read catalog document %s", key)
	}
	return data, nil
}
