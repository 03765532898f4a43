package qr

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/Daskott/kavach/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]storage.Object{}}
}

func (m *memoryStore) Put(ctx context.Context, obj storage.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[obj.Key] = obj
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return obj.Body, nil
}

type recorderFunc func(ctx context.Context, token string) error

func (f recorderFunc) MarkArtifactStored(ctx context.Context, token string) error {
	return f(ctx, token)
}

func TestGenerateToken(t *testing.T) {
	hexToken := regexp.MustCompile(`^[0-9a-f]{64}$`)
	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.Nil(t, err)
		assert.Regexp(t, hexToken, token)
		assert.False(t, seen[token], "tokens should not repeat")
		seen[token] = true
	}
}

func TestEmergencyURL(t *testing.T) {
	assert.Equal(t, "https://kavach.app/e/abc", EmergencyURL("https://kavach.app/", "abc"))
	assert.Equal(t, "https://kavach.app/e/abc", EmergencyURL("https://kavach.app", "abc"))
	assert.Equal(t, "abc.png", ObjectKey("abc"))
}

func TestRenderAndStore(t *testing.T) {
	store := newMemoryStore()
	var recorded []string
	producer := NewProducer(store, "https://kavach.app", recorderFunc(func(ctx context.Context, token string) error {
		recorded = append(recorded, token)
		return nil
	}))

	err := producer.RenderAndStore(context.Background(), "abc")
	require.Nil(t, err)

	obj := store.objects["abc.png"]
	assert.Equal(t, IMAGE_CONTENT_TYPE, obj.ContentType)
	assert.Equal(t, IMAGE_CACHE_CONTROL, obj.CacheControl)
	assert.True(t, bytes.HasPrefix(obj.Body, pngMagic), "expected a png image")
	assert.Equal(t, []string{"abc"}, recorded)
}

func TestRenderIsDeterministic(t *testing.T) {
	producer := NewProducer(newMemoryStore(), "https://kavach.app", nil)

	first, err := producer.Render("abc")
	require.Nil(t, err)
	second, err := producer.Render("abc")
	require.Nil(t, err)
	assert.Equal(t, first, second)

	_, err = producer.Render("")
	assert.NotNil(t, err)
}

func TestRenderAndStoreUploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.putErr = errors.New("bucket unavailable")
	producer := NewProducer(store, "https://kavach.app", recorderFunc(func(ctx context.Context, token string) error {
		t.Fatal("should not record a failed upload")
		return nil
	}))

	err := producer.RenderAndStore(context.Background(), "abc")
	assert.NotNil(t, err)
}

func TestFetchRegeneratesMissingImage(t *testing.T) {
	store := newMemoryStore()
	producer := NewProducer(store, "https://kavach.app", nil)

	png, err := producer.Fetch(context.Background(), "abc")
	require.Nil(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	_, stored := store.objects["abc.png"]
	assert.True(t, stored, "missing image should be uploaded on fetch")

	// Still serves an image when the repair upload fails
	store.putErr = errors.New("bucket unavailable")
	png, err = producer.Fetch(context.Background(), "def")
	assert.Nil(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
