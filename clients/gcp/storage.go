package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
)

// UploadObject writes the contents of r to an object in the given bucket,
// overwriting any previous version.
func UploadObject(ctx context.Context, client *storage.Client, bucketName, objectName, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*60)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	slog.Debug("Blob uploaded successfully", "objectName", objectName)
	return nil
}

// DownloadObject copies an object from the given bucket into w.
func DownloadObject(ctx context.Context, client *storage.Client, bucketName, objectName string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*60)
	defer cancel()

	rc, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %w", objectName, err)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}
	return nil
}
