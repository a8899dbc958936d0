package blob

import (
	"context"
	"sync"
	"time"

	"github.com/Makisuo/confect-plus/internal/platform"
)

// Memory is the in-process object store used by local hosts and tests.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[platform.FileID]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data        []byte
	contentType string
	sha256      string
	createdAt   time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[platform.FileID]memoryObject),
		now:     time.Now,
	}
}

// WithClock substitutes the creation-time clock, for stable test output.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Store(ctx context.Context, data []byte, contentType string) (platform.FileID, error) {
	id, err := newFileID()
	if err != nil {
		return "", err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = memoryObject{
		data:        buf,
		contentType: contentType,
		sha256:      contentSHA256(data),
		createdAt:   m.now(),
	}
	return id, nil
}

func (m *Memory) Exists(ctx context.Context, id platform.FileID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id]
	return ok, nil
}

func (m *Memory) Metadata(ctx context.Context, id platform.FileID) (*platform.FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, nil
	}
	return &platform.FileMetadata{
		ID:          id,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		SHA256:      obj.sha256,
		CreatedAt:   obj.createdAt,
	}, nil
}

func (m *Memory) URL(ctx context.Context, id platform.FileID) (string, error) {
	return "memory://" + string(id), nil
}

func (m *Memory) Delete(ctx context.Context, id platform.FileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

// Read hands back a stored object's bytes. Local-host only; the
// capability surface exposes URLs, not contents.
func (m *Memory) Read(id platform.FileID) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, true
}

var _ Storage = (*Memory)(nil)
