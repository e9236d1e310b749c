package receipt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is one uploaded attachment as received from the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists attachment bytes and returns a URL clients can open.
type Store interface {
	Put(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskStore writes attachments under a local directory served at publicURL.
type DiskStore struct {
	dir       string
	publicURL string
}

func NewDiskStore(dir, publicURL string) *DiskStore {
	return &DiskStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *DiskStore) Put(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close receipt file: %w", err)
	}

	return s.publicURL + "/" + path.Clean(objectName), nil
}

func (s *DiskStore) Delete(ctx context.Context, url string) error {
	objectName := strings.TrimPrefix(url, s.publicURL+"/")
	if objectName == url {
		return fmt.Errorf("url %q is not served by this store", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(path.Clean(objectName))))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
