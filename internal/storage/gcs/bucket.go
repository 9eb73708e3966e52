package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Bucket reads catalog documents from a Cloud Storage bucket.
type Bucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New opens a client with application default credentials.
func New(ctx context.Context, name string) (*Bucket, error) {
	const operation = "gcs.New"

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &Bucket{client: client, bucket: client.Bucket(name)}, nil
}

func (b *Bucket) Read(ctx context.Context, name string) ([]byte, error) {
	const operation = "gcs.Read"

	r, err := b.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %s: %w", operation, name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", operation, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", operation, name, err)
	}
	return data, nil
}

// List returns the base names of the objects directly under prefix.
// An empty folder is reported as absent.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	const operation = "gcs.List"

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", operation, prefix, err)
		}
		// sub-folders come back as prefix-only entries
		if attrs.Name == "" {
			continue
		}
		names = append(names, path.Base(attrs.Name))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", operation, prefix, fs.ErrNotExist)
	}
	return names, nil
}

func (b *Bucket) Close() error {
	return b.client.Close()
}
