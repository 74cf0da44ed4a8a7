package audiostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/readback/readback/internal/common"
)

// NATSStore keeps audio in a JetStream object store bucket. Objects are served
// back through the HTTP API, so URLs point at <publicBaseURL>/api/audio/<key>.
type NATSStore struct {
	bucket  string
	baseURL string
	store   jetstream.ObjectStore
}

// NewNATSStore creates the bucket, or binds to it when it already exists.
func NewNATSStore(ctx context.Context, js jetstream.JetStream, bucket, publicBaseURL string) (*NATSStore, error) {
	store, err := js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("Synthesized audio for the %s bucket.", bucket),
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("create object store bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("bind object store bucket %q: %w", bucket, err)
		}
	}

	return &NATSStore{
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		store:   store,
	}, nil
}

func (n *NATSStore) Save(ctx context.Context, key string, audio []byte) (string, error) {
	if _, err := n.store.PutBytes(ctx, key, audio); err != nil {
		return "", fmt.Errorf("put object %q to bucket %q: %w", key, n.bucket, err)
	}
	return "nats://" + n.bucket + "/" + key, nil
}

func (n *NATSStore) URL(_ context.Context, ref string) (string, error) {
	_, key, ok := splitRef(ref, "nats")
	if !ok {
		return ref, nil
	}
	return n.baseURL + "/api/audio/" + key, nil
}

// Open streams the object stored under key. A missing object yields
// common.ErrorNotFound. The caller closes the reader.
func (n *NATSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := n.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get object %q from bucket %q: %w", key, n.bucket, err)
	}
	return obj, nil
}
