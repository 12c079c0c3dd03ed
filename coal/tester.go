package coal

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// A Tester provides facilities to work with a store in tests.
type Tester struct {
	// The store to use for cleaning the database.
	Store *Store

	// The registered collections.
	Collections []string
}

// NewTester returns a new tester.
func NewTester(store *Store, collections ...string) *Tester {
	return &Tester{
		Store:       store,
		Collections: collections,
	}
}

// Clean will remove all documents from the registered collections.
func (t *Tester) Clean() {
	for _, coll := range t.Collections {
		// remove all is faster than dropping the collection
		_, err := t.Store.C(coll).DeleteMany(context.Background(), bson.M{})
		if err != nil {
			panic(err)
		}
	}
}

// Insert will insert the specified document.
func (t *Tester) Insert(coll string, doc interface{}) {
	_, err := t.Store.C(coll).InsertOne(context.Background(), doc)
	if err != nil {
		panic(err)
	}
}

// Fetch will decode the document with the provided id into value and return
// whether it has been found.
func (t *Tester) Fetch(coll string, id ID, value interface{}) bool {
	found, err := t.Store.C(coll).FindOne(context.Background(), value, bson.M{
		"_id": id,
	})
	if err != nil {
		panic(err)
	}

	return found
}

// Count will return the number of documents that match the filter.
func (t *Tester) Count(coll string, filter bson.M) int {
	// ensure filter
	if filter == nil {
		filter = bson.M{}
	}

	// count documents
	n, err := t.Store.C(coll).CountDocuments(context.Background(), filter)
	if err != nil {
		panic(err)
	}

	return int(n)
}
