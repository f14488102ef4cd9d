package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	ProviderGCS    = "gcs"
	ProviderDO     = "do"
	ProviderMemory = "memory"
)

var ErrObjectNotFound = errors.New("object not found")

// Store holds attachment bytes. Keys are bucket-relative object names.
type Store interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Provider() string
	Bucket() string
}

// GetStorageProvider reads STORAGE_PROVIDER, defaulting to gcs.
func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return ProviderGCS
	}
	return provider
}

// NewFromEnv opens the store selected by STORAGE_PROVIDER.
func NewFromEnv(ctx context.Context) (Store, error) {
	switch provider := GetStorageProvider(); provider {
	case ProviderGCS:
		return NewGCSStore(ctx, os.Getenv("GCS_BUCKET"), os.Getenv("GCS_CREDENTIALS_JSON"))
	case ProviderDO:
		return NewSpacesStore(SpacesConfig{
			Endpoint:  os.Getenv("SP_URL"),
			AccessKey: os.Getenv("SP_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("SP_SECRET_ACCESS_KEY"),
			Bucket:    os.Getenv("SP_BUCKET"),
			UseSSL:    !strings.EqualFold(os.Getenv("SP_USE_SSL"), "false"),
		})
	case ProviderMemory:
		return NewMemoryStore("memory"), nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_PROVIDER %q", provider)
	}
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

// ContentType returns the type stored with key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}

// Keys lists stored object keys.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryStore) Provider() string { return ProviderMemory }
func (m *MemoryStore) Bucket() string   { return m.bucket }
