package blaze

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/256dpi/xo"
)

// Blob is an object stored by the memory service.
type Blob struct {
	Type  string
	Bytes []byte
}

// Memory is a service for testing purposes that stores blobs in memory.
type Memory struct {
	// The base URL.
	Base string

	// The stored blobs.
	Blobs map[string]*Blob

	mutex sync.Mutex
}

// NewMemory will create a new memory service that serves objects from the
// provided base URL.
func NewMemory(base string) *Memory {
	return &Memory{
		Base:  strings.TrimSuffix(base, "/"),
		Blobs: map[string]*Blob{},
	}
}

// Put implements the Service interface.
func (s *Memory) Put(_ context.Context, name, mediaType string, r io.Reader, _ int64) error {
	// check name
	if name == "" {
		return ErrInvalidName.Wrap()
	}

	// read data
	data, err := io.ReadAll(r)
	if err != nil {
		return xo.W(err)
	}

	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// store blob
	s.Blobs[name] = &Blob{
		Type:  mediaType,
		Bytes: data,
	}

	return nil
}

// Delete implements the Service interface.
func (s *Memory) Delete(_ context.Context, name string) error {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// check blob
	if _, ok := s.Blobs[name]; !ok {
		return ErrNotFound.Wrap()
	}

	// delete blob
	delete(s.Blobs, name)

	return nil
}

// URL implements the Service interface.
func (s *Memory) URL(name string) string {
	return s.Base + "/" + name
}

// Name implements the Service interface.
func (s *Memory) Name(url string) (string, bool) {
	return trimBase(s.Base, url)
}

// Get returns the blob with the provided name.
func (s *Memory) Get(name string) (*Blob, bool) {
	// acquire mutex
	s.mutex.Lock()
	defer s.mutex.Unlock()

	blob, ok := s.Blobs[name]
	return blob, ok
}

func trimBase(base, url string) (string, bool) {
	// check prefix
	if !strings.HasPrefix(url, base+"/") {
		return "", false
	}

	// get name
	name := strings.TrimPrefix(url, base+"/")
	if name == "" {
		return "", false
	}

	return name, true
}
