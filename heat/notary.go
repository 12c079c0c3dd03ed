package heat

import (
	"sync"
	"time"

	"github.com/256dpi/xo"

	"github.com/256dpi/quill/coal"
)

// Notary is used to issue and verify tokens of different kinds. Every kind is
// signed with its own secret derived from the notary secret, so a token of one
// kind is never accepted as another kind.
type Notary struct {
	issuer string
	secret Secret
	keys   map[string]Secret
	mutex  sync.Mutex
}

// NewNotary creates a new notary with the specified issuer and secret. It will
// panic if the issuer is missing or the specified secret is less that 16 bytes.
func NewNotary(issuer string, secret []byte) *Notary {
	// check issuer
	if issuer == "" {
		panic("heat: missing issuer")
	}

	// check secret
	if len(secret) < 16 {
		panic("heat: secret too small")
	}

	return &Notary{
		issuer: issuer,
		secret: secret,
		keys:   map[string]Secret{},
	}
}

// Issue will generate a token of the provided kind for the subject that
// expires after the specified duration.
func (n *Notary) Issue(kind string, subject coal.ID, ttl time.Duration, data Data) (string, time.Time, error) {
	// check ttl
	if ttl <= 0 {
		return "", time.Time{}, xo.F("invalid ttl")
	}

	// compute expiry
	expiry := time.Now().Add(ttl).Truncate(time.Second)

	// issue token
	token, err := Issue(n.derive(kind), n.issuer, kind, RawKey{
		ID:      coal.New().Hex(),
		Subject: subject.Hex(),
		Expiry:  expiry,
		Data:    data,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiry, nil
}

// Verify will verify the specified token of the provided kind and return the
// key and decoded subject.
func (n *Notary) Verify(kind, token string) (*RawKey, coal.ID, error) {
	// verify token
	key, err := Verify(n.derive(kind), n.issuer, kind, token)
	if err != nil {
		return nil, coal.ID{}, err
	}

	// parse subject
	subject, err := coal.FromHex(key.Subject)
	if err != nil || subject.IsZero() {
		return nil, coal.ID{}, ErrInvalidToken.Wrap()
	}

	return key, subject, nil
}

func (n *Notary) derive(kind string) Secret {
	// acquire mutex
	n.mutex.Lock()
	defer n.mutex.Unlock()

	// check cache
	key, ok := n.keys[kind]
	if !ok {
		key = n.secret.Derive(kind)
		n.keys[kind] = key
	}

	return key
}
