package export

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Uploader copies an exported file to remote storage
type Uploader interface {
	// Upload stores localPath under key and returns the remote URL
	Upload(ctx context.Context, key, localPath string) (string, error)
}

// GCSUploader uploads to a Cloud Storage bucket
type GCSUploader struct {
	bucketName string
	client     *storage.Client
}

// NewGCSUploader creates a Cloud Storage client using default credentials
func NewGCSUploader(ctx context.Context, bucketName string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &GCSUploader{
		bucketName: bucketName,
		client:     client,
	}, nil
}

// Upload implements Uploader
func (u *GCSUploader) Upload(ctx context.Context, key, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open export", goerr.V("path", localPath))
	}
	defer f.Close()

	w := u.client.Bucket(u.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", goerr.Wrap(err, "failed to write to storage", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize upload", goerr.V("key", key))
	}

	return fmt.Sprintf("gs://%s/%s", u.bucketName, key), nil
}

// Close releases the storage client
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
