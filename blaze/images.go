package blaze

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/256dpi/serve"
	"github.com/256dpi/xo"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/stick"
)

var imageTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Images stores uploaded images using a service.
type Images struct {
	// The service used to store images.
	Service Service

	// The URL of the placeholder image used for entities without an image.
	Placeholder string
}

// Upload will store the image and return its public URL. Only jpeg, png, gif
// and webp images are accepted, checked by file extension and media type.
func (i *Images) Upload(ctx context.Context, filename, mediaType string, r io.Reader, size int64) (string, error) {
	// trace
	ctx, span := xo.Trace(ctx, "blaze/Images.Upload")
	span.Tag("filename", filename)
	span.Tag("type", mediaType)
	defer span.End()

	// check image
	ext, err := checkImage(filename, mediaType)
	if err != nil {
		return "", err
	}

	// construct name
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), coal.New().Hex(), ext)

	// put object
	err = i.Service.Put(ctx, name, imageTypes[ext], r, size)
	if err != nil {
		return "", err
	}

	return i.Service.URL(name), nil
}

// Replace will store the image in place of the previous image. A fresh object
// is uploaded if the previous image is the placeholder or has not been stored
// by the service.
func (i *Images) Replace(ctx context.Context, prevURL, filename, mediaType string, r io.Reader, size int64) (string, error) {
	// trace
	ctx, span := xo.Trace(ctx, "blaze/Images.Replace")
	span.Tag("prev", prevURL)
	defer span.End()

	// get previous name
	name, ok := i.Service.Name(prevURL)
	if !ok || prevURL == "" || prevURL == i.Placeholder {
		return i.Upload(ctx, filename, mediaType, r, size)
	}

	// check image
	ext, err := checkImage(filename, mediaType)
	if err != nil {
		return "", err
	}

	// overwrite object
	err = i.Service.Put(ctx, name, imageTypes[ext], r, size)
	if err != nil {
		return "", err
	}

	return prevURL, nil
}

func checkImage(filename, mediaType string) (string, error) {
	// get extension
	ext := strings.ToLower(path.Ext(filename))

	// check extension
	expected, ok := imageTypes[ext]
	if !ok {
		return "", stick.Invalid("image", "file is not compatible")
	}

	// derive type
	if mediaType == "" {
		mediaType = serve.MimeTypeByExtension(ext, false)
	}

	// check type
	if !strings.EqualFold(strings.TrimSpace(strings.Split(mediaType, ";")[0]), expected) {
		return "", stick.Invalid("image", "file is not compatible")
	}

	return ext, nil
}
