package page

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Order returns the fixed page order: newest first, ties broken by the
// ascending id.
func Order() bson.D {
	return bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: 1},
	}
}

// Predicate will build the match predicate and sort specification for the
// provided filter and cursor. With a cursor, only rows strictly after the
// cursor position in page order are matched.
func Predicate(filter bson.M, cursor *Cursor) (bson.M, bson.D) {
	// get sort
	sort := Order()

	// without cursor the filter is used as is
	if cursor == nil {
		match := bson.M{}
		for key, value := range filter {
			match[key] = value
		}
		return match, sort
	}

	// prepare keyset condition
	after := bson.M{
		"$or": bson.A{
			bson.M{
				"createdAt": bson.M{"$lt": cursor.CreatedAt},
			},
			bson.M{
				"createdAt": cursor.CreatedAt,
				"_id":       bson.M{"$gt": cursor.ID},
			},
		},
	}

	// check filter
	if len(filter) == 0 {
		return after, sort
	}

	return bson.M{
		"$and": bson.A{filter, after},
	}, sort
}
