package qr

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/metrics"
	"github.com/Daskott/kavach/server/storage"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	IMAGE_SIZE         = 512
	IMAGE_CONTENT_TYPE = "image/png"

	// A token never changes the image it renders to.
	IMAGE_CACHE_CONTROL = "public, max-age=31536000"
)

var logg = logger.NewLogger()

// ArtifactRecorder is told once an image for token is safely stored.
type ArtifactRecorder interface {
	MarkArtifactStored(ctx context.Context, token string) error
}

type Producer struct {
	store    storage.ObjectStore
	baseURL  string
	recorder ArtifactRecorder
}

func NewProducer(store storage.ObjectStore, baseURL string, recorder ArtifactRecorder) *Producer {
	return &Producer{store: store, baseURL: baseURL, recorder: recorder}
}

// Render encodes the emergency url for token as a PNG.
func (p *Producer) Render(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("Render: empty token")
	}

	png, err := qrcode.Encode(EmergencyURL(p.baseURL, token), qrcode.Medium, IMAGE_SIZE)
	if err != nil {
		return nil, fmt.Errorf("qrcode.Encode: %v", err)
	}
	return png, nil
}

func (p *Producer) RenderAndStore(ctx context.Context, token string) error {
	_, err := p.renderAndStore(ctx, token)
	return err
}

// Fetch returns the stored image for token, regenerating it when the
// object is missing.
func (p *Producer) Fetch(ctx context.Context, token string) ([]byte, error) {
	png, err := p.store.Get(ctx, ObjectKey(token))
	if err == nil {
		return png, nil
	}

	if !errors.Is(err, storage.ErrObjectNotExist) {
		logg.Warnf("unable to read qr image for token, regenerating: %v", err)
	}

	png, err = p.renderAndStore(ctx, token)
	if err != nil && png != nil {
		// The caller still gets an image, the next fetch retries the upload
		logg.Error(err)
		return png, nil
	}
	return png, err
}

func (p *Producer) renderAndStore(ctx context.Context, token string) ([]byte, error) {
	png, err := p.Render(token)
	if err != nil {
		return nil, err
	}

	err = p.store.Put(ctx, storage.Object{
		Key:          ObjectKey(token),
		ContentType:  IMAGE_CONTENT_TYPE,
		CacheControl: IMAGE_CACHE_CONTROL,
		Body:         png,
	})
	if err != nil {
		metrics.ArtifactUploads.WithLabelValues("error").Inc()
		return png, fmt.Errorf("upload qr image: %v", err)
	}
	metrics.ArtifactUploads.WithLabelValues("ok").Inc()

	if p.recorder != nil {
		if err := p.recorder.MarkArtifactStored(ctx, token); err != nil {
			logg.Warnf("qr image stored but not recorded: %v", err)
		}
	}

	return png, nil
}
