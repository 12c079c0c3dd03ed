package blaze

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func abstractServiceTest(t *testing.T, svc Service) {
	err := svc.Put(context.Background(), "foo.png", "image/png", strings.NewReader("Hello World!"), 12)
	assert.NoError(t, err)

	url := svc.URL("foo.png")
	assert.True(t, strings.HasSuffix(url, "/foo.png"))

	name, ok := svc.Name(url)
	assert.True(t, ok)
	assert.Equal(t, "foo.png", name)

	_, ok = svc.Name("https://elsewhere.com/foo.png")
	assert.False(t, ok)

	err = svc.Put(context.Background(), "foo.png", "image/png", strings.NewReader("Hello Again!"), 12)
	assert.NoError(t, err)

	err = svc.Delete(context.Background(), "foo.png")
	assert.NoError(t, err)

	err = svc.Delete(context.Background(), "foo.png")
	assert.Error(t, err)
	assert.True(t, ErrNotFound.Is(err))
}
