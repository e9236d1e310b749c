package receipt

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// FirebaseStore keeps attachments in a Firebase Storage bucket.
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewFirebaseStore(ctx context.Context, app *firebase.App, bucketName string) (*FirebaseStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase storage client: %w", err)
	}

	var bucket *gcs.BucketHandle
	if bucketName == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(bucketName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage bucket: %w", err)
	}

	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket attributes: %w", err)
	}

	return &FirebaseStore{bucket: bucket, bucketName: attrs.Name}, nil
}

func (s *FirebaseStore) Put(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	w := s.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", objectName, err)
	}
	return s.objectURL(objectName), nil
}

func (s *FirebaseStore) Delete(ctx context.Context, url string) error {
	prefix := s.objectURL("")
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("url %q is not in bucket %s", url, s.bucketName)
	}
	return s.bucket.Object(strings.TrimPrefix(url, prefix)).Delete(ctx)
}

func (s *FirebaseStore) objectURL(objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectName)
}
