package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// AzureStore stores objects in Azure Blob Storage. A bucket is a container.
type AzureStore struct {
	client *azblob.Client
	logger *zap.Logger
}

// NewAzureStore connects with an account connection string.
func NewAzureStore(connectionString string, logger *zap.Logger) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return NewAzureStoreWithClient(client, logger), nil
}

// NewAzureStoreWithClient wraps an existing client.
func NewAzureStoreWithClient(client *azblob.Client, logger *zap.Logger) *AzureStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AzureStore{client: client, logger: logger}
}

// EnsureBuckets creates the named containers with anonymous blob read access.
func (s *AzureStore) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		_, err := s.client.CreateContainer(ctx, bucket, &azblob.CreateContainerOptions{
			Access: to.Ptr(azblob.PublicAccessTypeBlob),
		})
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
				continue
			}
			return fmt.Errorf("create container %s: %w", bucket, err)
		}
		s.logger.Info("created container", zap.String("bucket", bucket))
	}
	return nil
}

func (s *AzureStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, upsert bool) error {
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	}
	if !upsert {
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		}
	}

	if _, err := s.client.UploadBuffer(ctx, bucket, key, data, opts); err != nil {
		return classifyAzureError(err)
	}
	return nil
}

func (s *AzureStore) List(ctx context.Context, bucket string, opts ListOptions) ([]Object, error) {
	listOpts := &azblob.ListBlobsFlatOptions{}
	if opts.Prefix != "" {
		listOpts.Prefix = to.Ptr(opts.Prefix)
	}

	var result []Object
	pager := s.client.NewListBlobsFlatPager(bucket, listOpts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list container %s: %w", bucket, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					obj.Size = *props.ContentLength
				}
				if props.ContentType != nil {
					obj.ContentType = *props.ContentType
				}
				if props.LastModified != nil {
					obj.LastModified = *props.LastModified
				}
			}
			result = append(result, obj)
		}
	}
	return finishListing(result, opts.Limit), nil
}

func (s *AzureStore) Remove(ctx context.Context, bucket string, keys ...string) error {
	for _, key := range keys {
		if _, err := s.client.DeleteBlob(ctx, bucket, key, nil); err != nil {
			if bloberror.HasCode(err, bloberror.BlobNotFound) {
				continue
			}
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}
	return nil
}

func (s *AzureStore) PublicURL(bucket, key string) string {
	return joinURL(strings.TrimRight(s.client.URL(), "/"), bucket, key)
}

func classifyAzureError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
