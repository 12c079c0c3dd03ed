package heat

import (
	"errors"

	"github.com/256dpi/xo"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by CheckPassword if the password does not
// match the stored hash.
var ErrPasswordMismatch = xo.BF("password mismatch")

var passwordCost = bcrypt.DefaultCost

// UnsafeFastHash lowers the bcrypt cost to the minimum. It must only be used
// to speed up tests.
func UnsafeFastHash() {
	passwordCost = bcrypt.MinCost
}

// HashPassword returns the bcrypt hash of the provided password in its
// string form, ready to be stored on a user.
func HashPassword(password string) (string, error) {
	// bcrypt ignores everything after 72 bytes
	if len(password) > 72 {
		return "", xo.F("password too long")
	}

	// hash password
	buf, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", xo.W(err)
	}

	return string(buf), nil
}

// CheckPassword compares a stored hash with a candidate password. It returns
// ErrPasswordMismatch if they do not match and any other error if the hash is
// unusable.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch.Wrap()
	} else if err != nil {
		return xo.W(err)
	}

	return nil
}
