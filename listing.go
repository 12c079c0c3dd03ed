package quill

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/page"
)

// Searcher builds free-text search stages. With an index name the Atlas
// search stage is used, otherwise the collection text index is queried.
type Searcher struct {
	Index string
}

// Stage returns the search stage for the term over the provided paths.
func (s Searcher) Stage(term string, paths ...string) bson.D {
	// check index
	if s.Index == "" {
		return bson.D{{Key: "$match", Value: bson.M{
			"$text": bson.M{"$search": term},
		}}}
	}

	return bson.D{{Key: "$search", Value: bson.D{
		{Key: "index", Value: s.Index},
		{Key: "text", Value: bson.D{
			{Key: "query", Value: term},
			{Key: "path", Value: paths},
		}},
	}}}
}

// listing is a generic page.Pageable.
type listing struct {
	searcher Searcher
	paths    []string
	joins    func() []bson.D
}

func (l listing) Search(term string) bson.D {
	if len(l.paths) == 0 {
		return nil
	}

	return l.searcher.Stage(term, l.paths...)
}

func (l listing) Joins() []bson.D {
	if l.joins == nil {
		return nil
	}

	return l.joins()
}

func joinAuthor(field string) func() []bson.D {
	return func() []bson.D {
		return page.JoinOne(UsersCollection, field, userSummary)
	}
}

func userListing(s Searcher) page.Pageable {
	return listing{
		searcher: s,
		paths:    []string{"name", "email"},
		joins: func() []bson.D {
			return []bson.D{
				{{Key: "$project", Value: bson.D{{Key: "password", Value: 0}}}},
			}
		},
	}
}

func postListing(s Searcher) page.Pageable {
	return listing{
		searcher: s,
		paths:    []string{"title", "summary", "text"},
		joins:    joinAuthor("author"),
	}
}

// commentListing attaches the author and two levels of replies, each with
// its author.
func commentListing(s Searcher) page.Pageable {
	return listing{
		searcher: s,
		paths:    []string{"text"},
		joins: func() []bson.D {
			stages := joinAuthor("user")()
			stages = append(stages, page.JoinMany(CommentsCollection, "parent_comment", "replies", 2, joinAuthor("user"))...)
			return stages
		},
	}
}

func feedListing(s Searcher) page.Pageable {
	return listing{
		searcher: s,
		paths:    []string{"text"},
		joins: func() []bson.D {
			stages := joinAuthor("user")()
			stages = append(stages, page.JoinOne(PostsCollection, "post", postSummary)...)
			return stages
		},
	}
}
