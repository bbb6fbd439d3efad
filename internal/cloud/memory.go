package cloud

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process FileStore used in tests and offline mode.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	times map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		times: make(map[string]time.Time),
	}
}

func (m *Memory) Find(_ context.Context, name string) (*FileHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, nil
	}
	return &FileHandle{Key: name, Size: int64(len(data)), Modified: m.times[name]}, nil
}

func (m *Memory) Upload(_ context.Context, name string, data []byte) (*FileHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[name] = buf
	m.times[name] = time.Now()
	return &FileHandle{Key: name, Size: int64(len(buf)), Modified: m.times[name]}, nil
}

func (m *Memory) Download(_ context.Context, h *FileHandle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.files[h.Key]
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}
