package blaze

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/256dpi/xo"
	"github.com/minio/minio-go/v7"
)

// Minio stores objects in a S3 compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	base   string
}

// NewMinio creates a new Minio service. The base is the public URL under which
// the objects of the bucket are served.
func NewMinio(client *minio.Client, bucket, base string) *Minio {
	return &Minio{
		client: client,
		bucket: bucket,
		base:   strings.TrimSuffix(base, "/"),
	}
}

// Put implements the Service interface.
func (m *Minio) Put(ctx context.Context, name, mediaType string, r io.Reader, size int64) error {
	// ensure context
	if ctx == nil {
		ctx = context.Background()
	}

	// check name
	if name == "" {
		return ErrInvalidName.Wrap()
	}

	// put object
	_, err := m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: mediaType,
	})
	if err != nil {
		return xo.W(err)
	}

	return nil
}

// Delete implements the Service interface.
func (m *Minio) Delete(ctx context.Context, name string) error {
	// ensure context
	if ctx == nil {
		ctx = context.Background()
	}

	// check object
	_, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{})
	if isMinioNotFoundErr(err) {
		return ErrNotFound.Wrap()
	} else if err != nil {
		return xo.W(err)
	}

	// remove object
	err = m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		return xo.W(err)
	}

	return nil
}

// URL implements the Service interface.
func (m *Minio) URL(name string) string {
	return m.base + "/" + name
}

// Name implements the Service interface.
func (m *Minio) Name(url string) (string, bool) {
	return trimBase(m.base, url)
}

func isMinioNotFoundErr(err error) bool {
	return minio.ToErrorResponse(err).StatusCode == http.StatusNotFound
}
