package coal

import (
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is the object id used as the primary key of all documents.
type ID = primitive.ObjectID

// New returns a new object id. The optional timestamp is used to seed ids in
// tests and fixtures.
func New(timestamp ...time.Time) ID {
	if len(timestamp) > 0 {
		return primitive.NewObjectIDFromTimestamp(timestamp[0])
	}

	return primitive.NewObjectID()
}

// FromHex parses a hex encoded object id.
func FromHex(str string) (ID, error) {
	id, err := primitive.ObjectIDFromHex(str)
	if err != nil {
		return ID{}, xo.W(err)
	}

	return id, nil
}

// IsHex reports whether the string is a hex encoded object id.
func IsHex(str string) bool {
	return primitive.IsValidObjectID(str)
}

// Contains reports whether the list holds the id.
func Contains(list []ID, id ID) bool {
	for _, item := range list {
		if item == id {
			return true
		}
	}

	return false
}

// Subtract returns the ids of the first list that are absent from the second
// list, keeping their order. A nil list yields nil.
func Subtract(list, remove []ID) []ID {
	if list == nil {
		return nil
	}

	res := make([]ID, 0, len(list))
	for _, id := range list {
		if !Contains(remove, id) {
			res = append(res, id)
		}
	}

	return res
}
