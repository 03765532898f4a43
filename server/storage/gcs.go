package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsTimeout = 50 * time.Second

type GStorage struct {
	storageClient *gcs.Client
	bucket        string
	prefix        string
}

func NewGStorage(ctx context.Context, bucket, prefix, credentialsFilePath string) (*GStorage, error) {
	var client *gcs.Client
	var err error

	if bucket == "" {
		return nil, errors.New("NewGStorage: bucket is required")
	}

	if credentialsFilePath != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = gcs.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads an object, replacing any existing one with the same key.
func (gs *GStorage) Put(ctx context.Context, obj Object) error {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	wc := gs.storageClient.Bucket(gs.bucket).Object(objectName(gs.prefix, obj.Key)).NewWriter(ctx)
	wc.ContentType = obj.ContentType
	wc.CacheControl = obj.CacheControl

	if _, err := wc.Write(obj.Body); err != nil {
		wc.Close()
		return fmt.Errorf("Writer.Write: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	return nil
}

func (gs *GStorage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	name := objectName(gs.prefix, key)
	rc, err := gs.storageClient.Bucket(gs.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("Object(%q).NewReader: %v", name, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %v", err)
	}

	return body, nil
}
