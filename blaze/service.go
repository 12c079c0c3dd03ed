// Package blaze provides the storage of uploaded images in object stores.
package blaze

import (
	"context"
	"io"

	"github.com/256dpi/xo"
)

// ErrNotFound is returned if there is no object with the provided name.
var ErrNotFound = xo.BF("not found")

// ErrInvalidName is returned if the provided object name is invalid.
var ErrInvalidName = xo.BF("invalid name")

// Service is responsible for storing objects.
type Service interface {
	// Put should store the object under the provided name. An existing
	// object with the same name is overwritten.
	Put(ctx context.Context, name, mediaType string, r io.Reader, size int64) error

	// Delete should remove the object.
	Delete(ctx context.Context, name string) error

	// URL should return the public URL of the named object.
	URL(name string) string

	// Name should return the name of the object addressed by the URL and
	// whether the URL belongs to the service.
	Name(url string) (string, bool)
}
