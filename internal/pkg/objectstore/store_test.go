package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(&Config{
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		BucketName:      "assets",
		EndpointURL:     srv.URL,
		Enabled:         true,
	})
	require.NoError(t, err)
	return store.(*S3Store), fake
}

func TestS3StoreRoundTrip(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	key := PhotoKey(3, 9, "front.jpg")
	assert.Equal(t, "orgs/3/assets/9/front.jpg", key)

	require.NoError(t, store.Verify(ctx))
	require.NoError(t, store.Put(ctx, key, []byte("jpeg-bytes"), "image/jpeg"))
	assert.Equal(t, []byte("jpeg-bytes"), fake.objects["assets/"+key])
	assert.Equal(t, "image/jpeg", fake.types["assets/"+key])

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPresignGet(t *testing.T) {
	store, _ := newTestStore(t)
	url, err := store.PresignGet(context.Background(), DocumentKey(1, "invoice", "invoice-INV-000001.pdf"), 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/assets/orgs/1/documents/invoice/invoice-INV-000001.pdf")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestDisabledStore(t *testing.T) {
	store, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, store.Enabled())
	assert.ErrorIs(t, store.Put(context.Background(), "k", nil, ""), ErrDisabled)

	SetDefault(nil)
	assert.False(t, Default().Enabled())
}

func TestKeysStripDirectories(t *testing.T) {
	assert.Equal(t, "orgs/1/assets/2/evil.jpg", PhotoKey(1, 2, "../../evil.jpg"))
}
