package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAssemble(t *testing.T) {
	joins := JoinOne("people", "author", nil)

	plan, err := Assemble(listing{joins: joins}, Query{
		Limit:  5,
		Filter: bson.M{"name": bson.M{"$ne": ""}},
	})
	assert.NoError(t, err)
	assert.Equal(t, &Plan{
		Match: bson.M{"name": bson.M{"$ne": ""}},
		Sort:  Order(),
		Limit: 5,
		Joins: joins,
	}, plan)

	plan, err = Assemble(listing{}, Query{
		Limit:  5,
		Search: "foo",
	})
	assert.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.M{"name": "foo"}}}, plan.Search)

	plan, err = Assemble(listing{}, Query{})
	assert.Error(t, err)
	assert.True(t, ErrInvalidLimit.Is(err))
	assert.Nil(t, plan)
}

func TestPlanPipeline(t *testing.T) {
	joins := JoinOne("people", "author", nil)

	plan, err := Assemble(listing{joins: joins}, Query{
		Limit:  3,
		Search: "foo",
		Cursor: &Cursor{ID: id(1), CreatedAt: at(1)},
	})
	assert.NoError(t, err)

	match, _ := Predicate(nil, &Cursor{ID: id(1), CreatedAt: at(1)})
	assert.Equal(t, bson.A{
		bson.D{{Key: "$match", Value: bson.M{"name": "foo"}}},
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: Order()}},
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "metadata", Value: bson.A{
				bson.D{{Key: "$count", Value: "count"}},
			}},
			{Key: "results", Value: bson.A{
				bson.D{{Key: "$limit", Value: int64(3)}},
				joins[0],
				joins[1],
			}},
		}}},
	}, plan.Pipeline())

	// without search the match comes first
	plan, err = Assemble(listing{}, Query{Limit: 3})
	assert.NoError(t, err)
	pipeline := plan.Pipeline()
	assert.Len(t, pipeline, 3)
	assert.Equal(t, "$match", pipeline[0].(bson.D)[0].Key)
}
