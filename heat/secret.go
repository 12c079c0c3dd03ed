package heat

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/256dpi/xo"
	"golang.org/x/crypto/pbkdf2"
)

// A Secret is the master key material of a notary. Purpose bound keys are
// derived from it so that tokens of one kind can never verify as another.
type Secret []byte

// Derive returns a 32 byte key for the provided purpose.
func (s Secret) Derive(purpose string) Secret {
	return pbkdf2.Key(s, []byte("quill/"+purpose), 4096, 32, sha256.New)
}

// MustRand returns n bytes read from the system random source and panics if
// the source fails.
func MustRand(n int) []byte {
	buf := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		panic(xo.W(err))
	}

	return buf
}
