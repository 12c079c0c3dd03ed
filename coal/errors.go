package coal

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsMissing returns whether the provided error describes a missing document.
func IsMissing(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// IsDuplicate returns whether the provided error describes a duplicate
// document.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
