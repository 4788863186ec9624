// Package storage wraps the object buckets that hold uploaded and generated images.
package storage

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrConflict is returned by Upload when upsert is false and the key already exists.
var ErrConflict = errors.New("object already exists")

// Object describes one stored blob.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ListOptions narrows a bucket listing. A zero Limit means no limit.
type ListOptions struct {
	Prefix string
	Limit  int
}

// ObjectStore is the capability set every flow needs from a bucket provider.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string, upsert bool) error
	List(ctx context.Context, bucket string, opts ListOptions) ([]Object, error)
	Remove(ctx context.Context, bucket string, keys ...string) error
	PublicURL(bucket, key string) string
}

func joinURL(base, bucket, key string) string {
	segments := []string{strings.TrimRight(base, "/"), url.PathEscape(bucket)}
	for _, part := range strings.Split(strings.Trim(key, "/"), "/") {
		if part == "" {
			continue
		}
		segments = append(segments, url.PathEscape(part))
	}
	return strings.Join(segments, "/")
}

func finishListing(objects []Object, limit int) []Object {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	if limit > 0 && len(objects) > limit {
		objects = objects[:limit]
	}
	return objects
}
