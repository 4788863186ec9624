package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore maps each bucket onto a sub-directory of root.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a store rooted at dir. Public URLs are baseURL/<bucket>/<key>.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &DiskStore{root: dir, baseURL: baseURL}, nil
}

// Root returns the directory the store writes into.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) objectPath(bucket, key string) (string, error) {
	cleanKey := path.Clean("/" + key)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || cleanKey == "/" {
		return "", fmt.Errorf("invalid object location %q/%q", bucket, key)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(cleanKey)), nil
}

func (s *DiskStore) Upload(_ context.Context, bucket, key string, data []byte, _ string, upsert bool) error {
	target, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create bucket directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !upsert {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrConflict
		}
		return fmt.Errorf("open object: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("write object: %w", err)
	}
	return file.Close()
}

func (s *DiskStore) List(_ context.Context, bucket string, opts ListOptions) ([]Object, error) {
	dir := filepath.Join(s.root, bucket)
	var result []Object
	err := filepath.WalkDir(dir, func(current string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, current)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		result = append(result, Object{
			Key:          key,
			Size:         info.Size(),
			ContentType:  mime.TypeByExtension(path.Ext(key)),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list bucket %s: %w", bucket, err)
	}
	return finishListing(result, opts.Limit), nil
}

func (s *DiskStore) Remove(_ context.Context, bucket string, keys ...string) error {
	for _, key := range keys {
		target, err := s.objectPath(bucket, key)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove object %s: %w", key, err)
		}
	}
	return nil
}

func (s *DiskStore) PublicURL(bucket, key string) string {
	return joinURL(s.baseURL, bucket, key)
}
