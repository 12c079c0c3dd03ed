package heat

import (
	"errors"
	"time"

	"github.com/256dpi/xo"
	"github.com/golang-jwt/jwt/v4"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var jwtParser = jwt.NewParser(jwt.WithValidMethods([]string{
	jwtSigningMethod.Name,
}))

type jwtClaims struct {
	jwt.RegisteredClaims
	Data Data `json:"dat,omitempty"`
}

// ErrInvalidToken is returned if a token is in some way invalid.
var ErrInvalidToken = xo.BF("invalid token")

// ErrExpiredToken is returned if a token is expired but otherwise valid.
var ErrExpiredToken = xo.BF("expired token")

// Data is generic JSON object.
type Data map[string]interface{}

// RawKey represents a raw key.
type RawKey struct {
	ID      string
	Subject string
	Expiry  time.Time
	Data    Data
}

// Verify will verify the specified token and return the decoded raw key. The
// name must match the audience the token has been issued for.
func Verify(secret []byte, issuer, name, token string) (*RawKey, error) {
	// check name
	if name == "" {
		panic("heat: missing name")
	}

	// parse token
	var claims jwtClaims
	tkn, err := jwtParser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken.Wrap()
	} else if err != nil {
		return nil, ErrInvalidToken.Wrap()
	} else if !tkn.Valid {
		return nil, ErrInvalidToken.Wrap()
	}

	// check issuer
	if claims.Issuer != issuer {
		return nil, ErrInvalidToken.Wrap()
	}

	// check audience
	if len(claims.Audience) != 1 || claims.Audience[0] != name {
		return nil, ErrInvalidToken.Wrap()
	}

	// check id and expiry
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken.Wrap()
	}

	// prepare key
	key := &RawKey{
		ID:      claims.ID,
		Subject: claims.Subject,
		Expiry:  claims.ExpiresAt.Time,
		Data:    claims.Data,
	}

	return key, nil
}

// Issue will sign a token from the specified raw key.
func Issue(secret []byte, issuer, name string, key RawKey) (string, error) {
	// check name
	if name == "" {
		return "", xo.F("missing name")
	}

	// check id
	if key.ID == "" {
		return "", xo.F("missing id")
	}

	// check expiry
	if key.Expiry.IsZero() {
		return "", xo.F("missing expiry")
	}

	// get time
	now := time.Now()

	// create token
	token := jwt.NewWithClaims(jwtSigningMethod, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   key.Subject,
			Audience:  jwt.ClaimStrings{name},
			ExpiresAt: jwt.NewNumericDate(key.Expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        key.ID,
		},
		Data: key.Data,
	})

	// compute signature
	sig, err := token.SignedString(secret)
	if err != nil {
		return "", xo.W(err)
	}

	return sig, nil
}
