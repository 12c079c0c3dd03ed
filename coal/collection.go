package coal

import (
	"context"

	"github.com/256dpi/lungo"
	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection wraps a collection to automatically push tracing spans for
// run queries.
type Collection struct {
	name string
	coll lungo.ICollection
}

// Name returns the name of the collection.
func (c *Collection) Name() string {
	return c.name
}

// Native returns the wrapped collection.
func (c *Collection) Native() lungo.ICollection {
	return c.coll
}

// AggregateAll wraps the native Aggregate collection method and decodes all
// documents to the provided slice.
func (c *Collection) AggregateAll(ctx context.Context, slicePtr interface{}, pipeline interface{}, opts ...*options.AggregateOptions) error {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.Aggregate")
	span.Tag("collection", c.name)
	span.Tag("pipeline", pipeline)
	defer span.End()

	// run query
	csr, err := c.coll.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return xo.W(err)
	}

	// decode all documents
	err = csr.All(ctx, slicePtr)
	if err != nil {
		return xo.W(err)
	}

	return nil
}

// CountDocuments wraps the native CountDocuments collection method.
func (c *Collection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.CountDocuments")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	n, err := c.coll.CountDocuments(ctx, filter, opts...)
	return n, xo.W(err)
}

// DeleteMany wraps the native DeleteMany collection method.
func (c *Collection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.DeleteMany")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	res, err := c.coll.DeleteMany(ctx, filter, opts...)
	return res, xo.W(err)
}

// DeleteOne wraps the native DeleteOne collection method.
func (c *Collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.DeleteOne")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	res, err := c.coll.DeleteOne(ctx, filter, opts...)
	return res, xo.W(err)
}

// FindAll wraps the native Find collection method and decodes all documents to
// the provided slice.
func (c *Collection) FindAll(ctx context.Context, slicePtr interface{}, filter interface{}, opts ...*options.FindOptions) error {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.Find")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	csr, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return xo.W(err)
	}

	// decode all documents
	err = csr.All(ctx, slicePtr)
	if err != nil {
		return xo.W(err)
	}

	return nil
}

// FindOne wraps the native FindOne collection method and decodes the document
// into the provided value. It returns false if no document matched.
func (c *Collection) FindOne(ctx context.Context, value interface{}, filter interface{}, opts ...*options.FindOneOptions) (bool, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.FindOne")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	err := c.coll.FindOne(ctx, filter, opts...).Decode(value)
	if IsMissing(err) {
		return false, nil
	} else if err != nil {
		return false, xo.W(err)
	}

	return true, nil
}

// InsertOne wraps the native InsertOne collection method.
func (c *Collection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.InsertOne")
	span.Tag("collection", c.name)
	defer span.End()

	// run query
	res, err := c.coll.InsertOne(ctx, document, opts...)
	return res, xo.W(err)
}

// InsertMany wraps the native InsertMany collection method.
func (c *Collection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.InsertMany")
	span.Tag("collection", c.name)
	span.Tag("count", len(documents))
	defer span.End()

	// run query
	res, err := c.coll.InsertMany(ctx, documents, opts...)
	return res, xo.W(err)
}

// UpdateMany wraps the native UpdateMany collection method.
func (c *Collection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.UpdateMany")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	res, err := c.coll.UpdateMany(ctx, filter, update, opts...)
	return res, xo.W(err)
}

// UpdateOne wraps the native UpdateOne collection method.
func (c *Collection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	// trace
	ctx, span := xo.Trace(ctx, "coal/Collection.UpdateOne")
	span.Tag("collection", c.name)
	span.Tag("filter", filter)
	defer span.End()

	// run query
	res, err := c.coll.UpdateOne(ctx, filter, update, opts...)
	return res, xo.W(err)
}
