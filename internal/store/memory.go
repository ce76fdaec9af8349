package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests. It mirrors the S3 store's
// path semantics: objects live at cleaned rooted paths, and a path with
// children counts as an existing directory.
type Memory struct {
	mu       sync.Mutex
	objects  map[string]memObject
	dirs     map[string]bool
	statErrs map[string]error
	saveErrs map[string]error
	saves    []SaveRecord
}

var _ Store = (*Memory)(nil)

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
}

// SaveRecord captures one Save call for assertions.
type SaveRecord struct {
	LocalPath   string
	RemotePath  string
	ContentType string
	Overwrite   bool
	Metadata    map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string]memObject),
		dirs:     make(map[string]bool),
		statErrs: make(map[string]error),
		saveErrs: make(map[string]error),
	}
}

// Put seeds an object at the given remote path.
func (m *Memory) Put(remotePath, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[normalizePath(remotePath)] = memObject{
		data:    []byte(content),
		modTime: time.Now(),
	}
}

// MkDir registers a directory so Stat finds it even with no children.
func (m *Memory) MkDir(remotePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[normalizePath(remotePath)] = true
}

// FailStat makes Stat on the given path return err (a transient failure).
func (m *Memory) FailStat(remotePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statErrs[normalizePath(remotePath)] = err
}

// FailSave makes Save to the given path return err.
func (m *Memory) FailSave(remotePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErrs[normalizePath(remotePath)] = err
}

// Saves returns a copy of all recorded Save calls in order.
func (m *Memory) Saves() []SaveRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SaveRecord(nil), m.saves...)
}

// Object returns the stored content for a path, if present.
func (m *Memory) Object(remotePath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[normalizePath(remotePath)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Metadata returns the user metadata stored with a path.
func (m *Memory) Metadata(remotePath string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[normalizePath(remotePath)].metadata
}

// Stat implements Store.
func (m *Memory) Stat(ctx context.Context, remotePath string) (StatInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	np := normalizePath(remotePath)
	if err := m.statErrs[np]; err != nil {
		return StatInfo{}, fmt.Errorf("stat %s: %w", remotePath, err)
	}
	if obj, ok := m.objects[np]; ok {
		return StatInfo{Size: int64(len(obj.data)), ModTime: obj.modTime}, nil
	}
	if m.dirs[np] {
		return StatInfo{}, nil
	}
	for key := range m.objects {
		if strings.HasPrefix(key, np+"/") {
			return StatInfo{}, nil
		}
	}
	return StatInfo{}, fmt.Errorf("stat %s: %w", remotePath, ErrNotFound)
}

// Save implements Store. The local file is read eagerly so tests observe
// real content.
func (m *Memory) Save(ctx context.Context, localPath, remotePath string, opts SaveOptions) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	np := normalizePath(remotePath)
	m.saves = append(m.saves, SaveRecord{
		LocalPath:   localPath,
		RemotePath:  remotePath,
		ContentType: opts.ContentType,
		Overwrite:   opts.Overwrite,
		Metadata:    opts.Metadata,
	})

	if err := m.saveErrs[np]; err != nil {
		return fmt.Errorf("save %s: %w", remotePath, err)
	}
	if _, exists := m.objects[np]; exists && !opts.Overwrite {
		return fmt.Errorf("save %s: %w", remotePath, ErrConflict)
	}

	m.objects[np] = memObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    opts.Metadata,
		modTime:     time.Now(),
	}
	return nil
}

// DownloadString implements Store.
func (m *Memory) DownloadString(ctx context.Context, remotePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[normalizePath(remotePath)]
	if !ok {
		return "", fmt.Errorf("download %s: %w", remotePath, ErrNotFound)
	}
	return string(obj.data), nil
}
