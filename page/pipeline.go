package page

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/xo"
)

// ErrInvalidLimit is returned when a query is planned with a limit below one.
var ErrInvalidLimit = xo.BF("invalid limit")

// Pageable describes a paginated listing of an entity kind.
type Pageable interface {
	// Search returns the stage that restricts rows to the free-text term.
	// A nil stage disables searching.
	Search(term string) bson.D

	// Joins returns the stages that attach related entities to each row of
	// a page.
	Joins() []bson.D
}

// Query describes the requested page.
type Query struct {
	// The maximum number of rows.
	Limit int64

	// The optional free-text search term.
	Search string

	// The position of the last row of the previous page.
	Cursor *Cursor

	// The structural filter.
	Filter bson.M
}

// Plan is an assembled page query.
type Plan struct {
	Search bson.D
	Match  bson.M
	Sort   bson.D
	Limit  int64
	Joins  []bson.D
}

// Assemble will assemble the plan for the provided listing and query.
func Assemble(pageable Pageable, query Query) (*Plan, error) {
	// check limit
	if query.Limit < 1 {
		return nil, ErrInvalidLimit.Wrap()
	}

	// build predicate
	match, sort := Predicate(query.Filter, query.Cursor)

	// prepare plan
	plan := &Plan{
		Match: match,
		Sort:  sort,
		Limit: query.Limit,
		Joins: pageable.Joins(),
	}

	// add search
	if query.Search != "" {
		plan.Search = pageable.Search(query.Search)
	}

	return plan, nil
}

// Pipeline returns the aggregation pipeline for the plan. The pipeline
// yields a single document with a "metadata" branch that counts all rows
// after the cursor and a "results" branch that carries the joined page rows.
func (p *Plan) Pipeline() bson.A {
	// prepare pipeline
	pipeline := bson.A{}

	// a search stage must come first
	if len(p.Search) > 0 {
		pipeline = append(pipeline, p.Search)
	}

	// add match and sort
	pipeline = append(pipeline,
		bson.D{{Key: "$match", Value: p.Match}},
		bson.D{{Key: "$sort", Value: p.Sort}},
	)

	// prepare results
	results := bson.A{
		bson.D{{Key: "$limit", Value: p.Limit}},
	}
	for _, stage := range p.Joins {
		results = append(results, stage)
	}

	// add facet
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.D{
		{Key: "metadata", Value: bson.A{
			bson.D{{Key: "$count", Value: "count"}},
		}},
		{Key: "results", Value: results},
	}}})

	return pipeline
}
