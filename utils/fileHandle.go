package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore persists media (thumbnails, lesson content) and hands back a
// public URL. Delete takes the URL that Store returned.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader, objectPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ObjectPath builds a unique object name under prefix, keeping the upload's
// extension.
func ObjectPath(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := time.Now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8] + ext
	return path.Join(prefix, name)
}

// StoreUpload streams a multipart upload into the blob store.
func StoreUpload(ctx context.Context, store BlobStore, file *multipart.FileHeader, prefix string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return store.Store(ctx, src, ObjectPath(prefix, file.Filename))
}

// LocalBlobStore writes objects below a directory served at baseURL.
type LocalBlobStore struct {
	dir     string
	baseURL string
}

func NewLocalBlobStore(dir, baseURL string) *LocalBlobStore {
	return &LocalBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalBlobStore) Store(_ context.Context, r io.Reader, objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" {
		return "", fmt.Errorf("empty object path")
	}
	dest := filepath.Join(s.dir, filepath.FromSlash(clean))

	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}

	dst, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", err
	}

	return s.baseURL + "/" + clean, nil
}

func (s *LocalBlobStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return fmt.Errorf("url %q is not served by this store", url)
	}
	rel := path.Clean("/" + strings.TrimPrefix(url, s.baseURL+"/"))[1:]
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
