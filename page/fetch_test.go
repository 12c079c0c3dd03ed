package page

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/256dpi/xo"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/256dpi/quill/coal"
)

type fakeAggregator struct {
	pipeline interface{}
	facets   []Facet[item]
	err      error
}

func (a *fakeAggregator) AggregateAll(_ context.Context, slicePtr interface{}, pipeline interface{}, _ ...*options.AggregateOptions) error {
	a.pipeline = pipeline
	if a.err != nil {
		return a.err
	}

	*slicePtr.(*[]Facet[item]) = a.facets

	return nil
}

func TestShape(t *testing.T) {
	page := Shape[item](nil, 10)
	assert.Equal(t, &Page[item]{Results: []item{}}, page)

	page = Shape([]Facet[item]{{}}, 10)
	assert.Equal(t, &Page[item]{Results: []item{}}, page)

	rows := []item{
		{ID: id(1), CreatedAt: at(2)},
		{ID: id(2), CreatedAt: at(1)},
	}

	page = Shape([]Facet[item]{{
		Metadata: []Counter{{Count: 7}},
		Results:  rows,
	}}, 2)
	assert.Equal(t, &Page[item]{
		Results: rows,
		Metadata: Metadata{
			Count:          7,
			NextPageParams: &Cursor{ID: id(2), CreatedAt: at(1)},
		},
	}, page)

	page = Shape([]Facet[item]{{
		Metadata: []Counter{{Count: 2}},
		Results:  rows,
	}}, 3)
	assert.Nil(t, page.Metadata.NextPageParams)
}

func TestNext(t *testing.T) {
	rows := []item{
		{ID: id(1), CreatedAt: at(2)},
		{ID: id(2), CreatedAt: at(1)},
	}

	assert.Equal(t, &Cursor{ID: id(2), CreatedAt: at(1)}, Next(rows, 2))
	assert.Nil(t, Next(rows, 3))
	assert.Nil(t, Next(rows[:0], 1))
	assert.Nil(t, Next(rows, 0))
}

func TestFetch(t *testing.T) {
	agg := &fakeAggregator{
		facets: []Facet[item]{{
			Metadata: []Counter{{Count: 1}},
			Results:  []item{{ID: id(1), Name: "a", CreatedAt: at(1)}},
		}},
	}

	page, err := Fetch[item](context.Background(), agg, listing{}, Query{Limit: 1})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), page.Metadata.Count)
	assert.Equal(t, &Cursor{ID: id(1), CreatedAt: at(1)}, page.Metadata.NextPageParams)
	assert.Len(t, agg.pipeline, 3)

	agg.err = xo.F("failed")
	page, err = Fetch[item](context.Background(), agg, listing{}, Query{Limit: 1})
	assert.Error(t, err)
	assert.Nil(t, page)

	page, err = Fetch[item](context.Background(), agg, listing{}, Query{})
	assert.True(t, ErrInvalidLimit.Is(err))
	assert.Nil(t, page)
}

func TestPageJSON(t *testing.T) {
	page := Shape[item](nil, 10)

	buf, err := json.Marshal(page)
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"results": [],
		"metadata": {
			"count": 0,
			"nextPageParams": null
		}
	}`, string(buf))

	buf, err = json.Marshal(&Cursor{ID: id(1), CreatedAt: at(0)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"_id": "000000000000000000000001",
		"createdAt": "2020-09-13T12:26:40Z"
	}`, string(buf))
}

func TestFetchAggregate(t *testing.T) {
	withMongo(t, func(t *testing.T, tester *coal.Tester) {
		alice := person{ID: coal.New(), Name: "Alice"}
		tester.Insert("people", &alice)

		ghost := coal.New()
		c1 := item{ID: id(1), Name: "c1", CreatedAt: at(10), Author: nil}
		c2 := item{ID: id(2), Name: "c2", CreatedAt: at(10)}
		c3 := item{ID: id(3), Name: "c3", CreatedAt: at(9)}
		r1 := item{ID: id(4), Name: "r1", Parent: &c1.ID, CreatedAt: at(11)}
		r2 := item{ID: id(5), Name: "r2", Parent: &r1.ID, CreatedAt: at(12)}
		r3 := item{ID: id(6), Name: "r3", Parent: &r2.ID, CreatedAt: at(13)}

		for i, row := range []item{c1, c2, c3, r1, r2, r3} {
			author := alice.ID
			if i == 1 {
				author = ghost
			}
			tester.Insert("items", bson.M{
				"_id":       row.ID,
				"name":      row.Name,
				"parent":    row.Parent,
				"createdAt": row.CreatedAt,
				"author":    author,
			})
		}

		author := func() []bson.D {
			return JoinOne("people", "author", bson.D{{Key: "name", Value: 1}})
		}
		joins := append(author(), JoinMany("items", "parent", "replies", 2, author)...)

		query := Query{
			Limit:  2,
			Filter: bson.M{"parent": nil},
		}

		page, err := Fetch[item](context.Background(), tester.Store.C("items"), listing{joins: joins}, query)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), page.Metadata.Count)
		assert.Equal(t, &Cursor{ID: id(2), CreatedAt: at(10)}, page.Metadata.NextPageParams)
		assert.Len(t, page.Results, 2)

		first := page.Results[0]
		assert.Equal(t, "c1", first.Name)
		assert.Equal(t, &alice, first.Author)
		assert.Len(t, first.Replies, 1)
		assert.Equal(t, "r1", first.Replies[0].Name)
		assert.Equal(t, &alice, first.Replies[0].Author)
		assert.Len(t, first.Replies[0].Replies, 1)
		assert.Equal(t, "r2", first.Replies[0].Replies[0].Name)
		assert.NotNil(t, first.Replies[0].Replies[0].Replies)
		assert.Empty(t, first.Replies[0].Replies[0].Replies)

		second := page.Results[1]
		assert.Equal(t, "c2", second.Name)
		assert.Nil(t, second.Author)
		assert.NotNil(t, second.Replies)
		assert.Empty(t, second.Replies)

		query.Cursor = page.Metadata.NextPageParams
		page, err = Fetch[item](context.Background(), tester.Store.C("items"), listing{joins: joins}, query)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), page.Metadata.Count)
		assert.Nil(t, page.Metadata.NextPageParams)
		assert.Len(t, page.Results, 1)
		assert.Equal(t, "c3", page.Results[0].Name)

		// a cursor past the end yields an empty page
		query.Cursor = &Cursor{ID: c3.ID, CreatedAt: c3.CreatedAt}
		page, err = Fetch[item](context.Background(), tester.Store.C("items"), listing{joins: joins}, query)
		assert.NoError(t, err)
		assert.Equal(t, &Page[item]{Results: []item{}}, page)
	})
}
