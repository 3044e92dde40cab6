package store

import (
	"bytes"
	"context"
	"io"

	"github.com/jjudge-oj/runlog/internal/storage"
)

const documentContentType = "application/json"

// ObjectBackend keeps the document as one object in a bucket.
type ObjectBackend struct {
	objects storage.ObjectStorage
	key     string
	name    string
}

// NewObjectBackend stores the document under key. name identifies the
// object storage provider in logs and metrics.
func NewObjectBackend(objects storage.ObjectStorage, key, name string) *ObjectBackend {
	return &ObjectBackend{objects: objects, key: key, name: name}
}

func (b *ObjectBackend) Exists(ctx context.Context) (bool, error) {
	return b.objects.Exists(ctx, b.key)
}

func (b *ObjectBackend) Read(ctx context.Context) ([]byte, error) {
	rc, err := b.objects.Get(ctx, b.key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *ObjectBackend) Write(ctx context.Context, data []byte) error {
	return b.objects.Put(ctx, b.key, bytes.NewReader(data), int64(len(data)), documentContentType)
}

func (b *ObjectBackend) Name() string {
	return b.name
}
