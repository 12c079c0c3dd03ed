package coal

import (
	"context"
	"strings"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type index struct {
	coll  string
	text  bool
	model mongo.IndexModel
}

// An Indexer can be used to manage indexes for collections.
type Indexer struct {
	indexes []index
}

// NewIndexer returns a new indexer.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Add will add an index to the internal index list. Fields that are prefixed
// with a dash will result in a descending key.
func (i *Indexer) Add(coll string, unique bool, fields ...string) {
	// prepare options
	opts := options.Index().SetUnique(unique)

	// add index
	i.indexes = append(i.indexes, index{
		coll: coll,
		model: mongo.IndexModel{
			Keys:    Sort(fields...),
			Options: opts,
		},
	})
}

// AddText will add a text index over the provided fields. Text indexes back
// the $text search stage and are skipped for in-memory stores.
func (i *Indexer) AddText(coll string, fields ...string) {
	// prepare keys
	keys := bson.D{}
	for _, field := range fields {
		keys = append(keys, bson.E{Key: field, Value: "text"})
	}

	// add index
	i.indexes = append(i.indexes, index{
		coll: coll,
		text: true,
		model: mongo.IndexModel{
			Keys: keys,
		},
	})
}

// Ensure will ensure that the required indexes exist. It may fail early if some
// of the indexes are already existing and do not match the supplied index.
func (i *Indexer) Ensure(store *Store) error {
	// create context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// go through all indexes
	for _, idx := range i.indexes {
		// lungo has no text search
		if idx.text && store.Engine != nil {
			continue
		}

		// ensure single index
		_, err := store.DB().Collection(idx.coll).Indexes().CreateOne(ctx, idx.model)
		if err != nil {
			return xo.W(err)
		}
	}

	return nil
}

// Sort is a helper function to compute a sort document from a list of fields
// that may be prefixed with a dash to indicate descending order.
func Sort(fields ...string) bson.D {
	// prepare sort
	sort := bson.D{}

	// add fields
	for _, field := range fields {
		if strings.HasPrefix(field, "-") {
			sort = append(sort, bson.E{Key: strings.TrimPrefix(field, "-"), Value: -1})
		} else {
			sort = append(sort, bson.E{Key: field, Value: 1})
		}
	}

	return sort
}
