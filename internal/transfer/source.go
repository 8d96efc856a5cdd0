package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DirSource serves offloadable data from files under a local directory.
// Each data id maps to one file named after it.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DirSource) Size(ctx context.Context, dataID string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.root, filepath.Base(dataID)))
	if err != nil {
		return 0, fmt.Errorf("unknown data id %s: %w", dataID, err)
	}
	return info.Size(), nil
}

func (s *DirSource) Read(ctx context.Context, dataID string, offset, size int64) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(dataID)))
	if err != nil {
		return nil, fmt.Errorf("unknown data id %s: %w", dataID, err)
	}
	defer f.Close()

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s at %d: %w", dataID, offset, err)
	}
	return buf[:n], nil
}

// MemorySource holds data blobs in memory. Intended for tests and for
// nodes that stage offload candidates in RAM before shipping them.
type MemorySource struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySource creates an empty in-memory source
func NewMemorySource() *MemorySource {
	return &MemorySource{data: make(map[string][]byte)}
}

// Put stores or replaces a blob
func (s *MemorySource) Put(dataID string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[dataID] = payload
}

// PutZero stores a zero-filled blob of the given size, useful when only
// volumes matter
func (s *MemorySource) PutZero(dataID string, size int64) {
	s.Put(dataID, make([]byte, size))
}

func (s *MemorySource) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemorySource) Size(ctx context.Context, dataID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.data[dataID]
	if !ok {
		return 0, fmt.Errorf("unknown data id %s", dataID)
	}
	return int64(len(payload)), nil
}

func (s *MemorySource) Read(ctx context.Context, dataID string, offset, size int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.data[dataID]
	if !ok {
		return nil, fmt.Errorf("unknown data id %s", dataID)
	}
	if offset < 0 || offset > int64(len(payload)) {
		return nil, fmt.Errorf("offset %d out of range for %s", offset, dataID)
	}
	end := offset + size
	if end > int64(len(payload)) {
		end = int64(len(payload))
	}
	out := make([]byte, end-offset)
	copy(out, payload[offset:end])
	return out, nil
}
