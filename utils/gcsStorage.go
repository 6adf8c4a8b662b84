package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSBlobStore keeps objects in a single Cloud Storage bucket.
type GCSBlobStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSBlobStore uses application default credentials. An empty baseURL
// falls back to the public storage.googleapis.com endpoint.
func NewGCSBlobStore(ctx context.Context, bucket, baseURL string) (*GCSBlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if baseURL == "" || strings.HasPrefix(baseURL, "/") {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSBlobStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *GCSBlobStore) Store(ctx context.Context, r io.Reader, objectPath string) (string, error) {
	objectPath = strings.TrimLeft(objectPath, "/")
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", objectPath, err)
	}
	return s.baseURL + "/" + objectPath, nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return fmt.Errorf("url %q is not served by this store", url)
	}
	objectPath := strings.TrimPrefix(url, s.baseURL+"/")
	err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}
