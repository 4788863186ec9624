package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore keeps objects in process memory. It backs tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	buckets map[string]map[string]memoryObject
	now     func() time.Time
}

// NewMemoryStore creates an empty store whose public URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		buckets: make(map[string]map[string]memoryObject),
		now:     time.Now,
	}
}

func (s *MemoryStore) Upload(_ context.Context, bucket, key string, data []byte, contentType string, upsert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		objects = make(map[string]memoryObject)
		s.buckets[bucket] = objects
	}
	if _, exists := objects[key]; exists && !upsert {
		return ErrConflict
	}
	objects[key] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		modified:    s.now(),
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, bucket string, opts ListOptions) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Object
	for key, obj := range s.buckets[bucket] {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		result = append(result, Object{
			Key:          key,
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			LastModified: obj.modified,
		})
	}
	return finishListing(result, opts.Limit), nil
}

func (s *MemoryStore) Remove(_ context.Context, bucket string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.buckets[bucket], key)
	}
	return nil
}

func (s *MemoryStore) PublicURL(bucket, key string) string {
	return joinURL(s.baseURL, bucket, key)
}

// Get returns a copy of the stored bytes.
func (s *MemoryStore) Get(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}
