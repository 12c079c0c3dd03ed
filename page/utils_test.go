package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/256dpi/quill/coal"
)

var lungoStore = coal.MustOpen(nil, "test-quill-page", xo.Panic)

var mongoStore *coal.Store
var mongoOnce sync.Once

type person struct {
	ID   coal.ID `bson:"_id" json:"_id"`
	Name string  `bson:"name" json:"name"`
}

type item struct {
	ID        coal.ID   `bson:"_id"`
	Name      string    `bson:"name"`
	Parent    *coal.ID  `bson:"parent"`
	CreatedAt time.Time `bson:"createdAt"`
	Author    *person   `bson:"author"`
	Replies   []item    `bson:"replies"`
}

func (i item) Position() Cursor {
	return Cursor{ID: i.ID, CreatedAt: i.CreatedAt}
}

type listing struct {
	joins []bson.D
}

func (l listing) Search(term string) bson.D {
	return bson.D{{Key: "$match", Value: bson.M{"name": term}}}
}

func (l listing) Joins() []bson.D {
	return l.joins
}

func at(sec int64) time.Time {
	return time.Unix(1600000000+sec, 0).UTC()
}

func id(n byte) coal.ID {
	var i coal.ID
	i[11] = n
	return i
}

func withLungo(t *testing.T, fn func(*testing.T, *coal.Tester)) {
	tester := coal.NewTester(lungoStore, "items", "people")
	tester.Clean()
	fn(t, tester)
}

func withMongo(t *testing.T, fn func(*testing.T, *coal.Tester)) {
	mongoOnce.Do(func() {
		store, err := coal.Connect("mongodb://0.0.0.0/test-quill-page?serverSelectionTimeoutMS=500", nil)
		if err == nil {
			mongoStore = store
		}
	})
	if mongoStore == nil {
		t.Skip("mongodb not available")
	}

	tester := coal.NewTester(mongoStore, "items", "people")
	tester.Clean()
	fn(t, tester)
}

func findPage(t *testing.T, store *coal.Store, filter bson.M, cursor *Cursor, limit int64) ([]item, *Cursor) {
	match, sort := Predicate(filter, cursor)

	var rows []item
	err := store.C("items").FindAll(context.Background(), &rows, match, options.Find().SetSort(sort).SetLimit(limit))
	if err != nil {
		t.Fatal(err)
	}

	return rows, Next(rows, limit)
}
