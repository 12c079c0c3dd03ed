package page

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/256dpi/xo"
)

// Aggregator runs aggregation pipelines. It is implemented by
// *coal.Collection.
type Aggregator interface {
	AggregateAll(ctx context.Context, slicePtr interface{}, pipeline interface{}, opts ...*options.AggregateOptions) error
}

// Metadata describes a page.
type Metadata struct {
	// The number of matching rows after the cursor, including this page.
	Count int64 `json:"count"`

	// The cursor of the next page, nil on the last page.
	NextPageParams *Cursor `json:"nextPageParams"`
}

// Page is a single page of rows.
type Page[T Row] struct {
	Results  []T      `json:"results"`
	Metadata Metadata `json:"metadata"`
}

// Counter is a document yielded by the count branch.
type Counter struct {
	Count int64 `bson:"count"`
}

// Facet is the raw document yielded by a page pipeline.
type Facet[T any] struct {
	Metadata []Counter `bson:"metadata"`
	Results  []T       `bson:"results"`
}

// Fetch will assemble and run the page query using the provided aggregator.
func Fetch[T Row](ctx context.Context, aggregator Aggregator, pageable Pageable, query Query) (*Page[T], error) {
	// trace
	ctx, span := xo.Trace(ctx, "page/Fetch")
	span.Tag("limit", query.Limit)
	span.Tag("search", query.Search)
	span.Tag("cursor", query.Cursor != nil)
	defer span.End()

	// assemble plan
	plan, err := Assemble(pageable, query)
	if err != nil {
		return nil, err
	}

	// run pipeline
	var facets []Facet[T]
	err = aggregator.AggregateAll(ctx, &facets, plan.Pipeline())
	if err != nil {
		return nil, err
	}

	return Shape(facets, plan.Limit), nil
}

// Shape will convert the raw pipeline output into a page. An empty count
// branch yields a count of zero.
func Shape[T Row](facets []Facet[T], limit int64) *Page[T] {
	// prepare page
	page := &Page[T]{
		Results: []T{},
	}

	// check output
	if len(facets) == 0 {
		return page
	}

	// set results
	if facets[0].Results != nil {
		page.Results = facets[0].Results
	}

	// set count
	if len(facets[0].Metadata) > 0 {
		page.Metadata.Count = facets[0].Metadata[0].Count
	}

	// set next page params
	page.Metadata.NextPageParams = Next(page.Results, limit)

	return page
}

// Next returns the cursor of the page following the provided rows. It is
// only set if the page is full, a full final page therefore yields one empty
// follow-up page.
func Next[T Row](rows []T, limit int64) *Cursor {
	// check rows
	if limit < 1 || int64(len(rows)) < limit || len(rows) == 0 {
		return nil
	}

	return Encode(rows[len(rows)-1])
}
