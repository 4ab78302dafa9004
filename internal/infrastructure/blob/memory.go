package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps blobs in process memory. Objects are served by the API
// under PublicBase.
type MemoryStore struct {
	publicBase string
	objects    map[string]*memoryObject
	mu         sync.RWMutex
}

// NewMemoryStore returns an empty MemoryStore whose URLs start with base.
func NewMemoryStore(base string) *MemoryStore {
	return &MemoryStore{
		publicBase: strings.TrimRight(base, "/"),
		objects:    make(map[string]*memoryObject),
	}
}

// PublicBase is the URL prefix of every stored object.
func (m *MemoryStore) PublicBase() string {
	return m.publicBase
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj := &memoryObject{data: make([]byte, len(data)), contentType: contentType}
	copy(obj.data, data)
	m.objects[key] = obj
	return m.publicBase + "/" + key, nil
}

// Delete removes the object behind ref. A missing key is not an error,
// matching S3 RemoveObject.
func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	key, ok := keyFromRef(m.publicBase, ref)
	if !ok {
		return fmt.Errorf("delete blob: %q is not stored here", ref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns the object stored under key.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) Owns(ref string) bool {
	_, ok := keyFromRef(m.publicBase, ref)
	return ok
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
