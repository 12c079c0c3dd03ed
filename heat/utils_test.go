package heat

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

var testSecret = MustRand(32)

func signClaims(t *testing.T, secret []byte, claims jwtClaims) string {
	token, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}

	return token
}
