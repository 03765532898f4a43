package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Daskott/kavach/shared"
)

var ErrObjectNotExist = errors.New("storage: object doesn't exist")

type Object struct {
	Key          string
	ContentType  string
	CacheControl string
	Body         []byte
}

// ObjectStore writes and reads whole objects. Put always overwrites.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func New(ctx context.Context, config shared.StorageConfig) (ObjectStore, error) {
	switch config.Backend {
	case shared.GCS_STORAGE:
		return NewGStorage(ctx, config.Bucket, config.Prefix, config.GoogleCredentialsFile)
	case shared.S3_STORAGE:
		return NewS3Storage(ctx, config.Bucket, config.Prefix, config.S3)
	case shared.LOCAL_STORAGE:
		return NewLocalStorage(config.Dir)
	}

	return nil, fmt.Errorf("unsupported storage backend %q", config.Backend)
}

func objectName(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
