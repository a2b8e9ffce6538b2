package storage

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

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		mu.Unlock()

		if r.Method == http.MethodPost && r.URL.Query().Has("delete") {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></DeleteResult>`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func newTestS3(t *testing.T, endpoint string) *S3 {
	t.Helper()
	s, err := NewS3(context.Background(), Config{User: "minio", Password: "minio123", Region: "us-east-1", Endpoint: endpoint})
	require.NoError(t, err)
	return s
}

func TestS3_PutUsesPathStyle(t *testing.T) {
	srv, reqs := fakeS3(t)
	s := newTestS3(t, srv.URL)

	require.NoError(t, s.Put(context.Background(), "files", "projects/p1/a.jpg", []byte("jpeg-bytes"), "image/jpeg"))

	got := reqs()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/files/projects/p1/a.jpg", got[0].path)
	assert.Contains(t, got[0].body, "jpeg-bytes")
}

func TestS3_DeleteBatches(t *testing.T) {
	srv, reqs := fakeS3(t)
	s := newTestS3(t, srv.URL)

	require.NoError(t, s.Delete(context.Background(), "Orcamentos", "a.pdf", "b.pdf"))
	require.NoError(t, s.Delete(context.Background(), "Orcamentos"))

	got := reqs()
	require.Len(t, got, 1, "empty key list makes no call")
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/Orcamentos", got[0].path)
	assert.Contains(t, got[0].body, "<Key>a.pdf</Key>")
	assert.Contains(t, got[0].body, "<Key>b.pdf</Key>")
}

func TestS3_PresignGet(t *testing.T) {
	s := newTestS3(t, "http://127.0.0.1:9000")

	url, err := s.PresignGet(context.Background(), "files", "projects/p1/a.jpg", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000/files/projects/p1/a.jpg?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	key := ObjectKey("p1", `C:\fotos\placa saida.jpg`, now)

	assert.True(t, strings.HasPrefix(key, "projects/p1/2025/03/"), key)
	assert.True(t, strings.HasSuffix(key, "-placa_saida.jpg"), key)
	assert.NotEqual(t, key, ObjectKey("p1", "placa saida.jpg", now))
}
