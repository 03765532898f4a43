package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/Daskott/kavach/utils"
)

// LocalStorage keeps objects as files under a directory. Used in dev mode
// and tests where no bucket is available.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, errors.New("NewLocalStorage: dir is required")
	}

	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, err
	}

	return &LocalStorage{dir: dir}, nil
}

func (ls *LocalStorage) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(ls.path(obj.Key), obj.Body, 0644)
}

func (ls *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(ls.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotExist
	}
	return body, err
}

func (ls *LocalStorage) path(key string) string {
	return filepath.Join(ls.dir, filepath.Base(key))
}
