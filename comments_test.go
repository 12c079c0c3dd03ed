package quill

import (
	"context"
	"testing"

	"github.com/256dpi/xo"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
)

func TestCommentsCreate(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		comment, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "  Nice post!  ")
		assert.NoError(t, err)
		assert.Equal(t, "Nice post!", comment.Text)
		assert.Equal(t, june.ID(), *comment.User)
		assert.Nil(t, comment.Parent)
		assert.Equal(t, []coal.ID{}, comment.Comments)

		var stored Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &stored))
		assert.Equal(t, int64(1), stored.CommentCount)

		_, err = tt.Blog.Comments.Create(context.Background(), nil, post.ID, "Anonymous")
		assert.True(t, ErrUnauthorized.Is(err))

		_, err = tt.Blog.Comments.Create(context.Background(), june, coal.New(), "Lost")
		assert.True(t, ErrNotFound.Is(err))

		_, err = tt.Blog.Comments.Create(context.Background(), june, post.ID, "   ")
		assert.Error(t, err)

		assert.Equal(t, 1, tt.Count(CommentsCollection, nil))
	})
}

func TestCommentsCreateDraft(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		carl := signup(t, tt.Blog, "Carl", "carl@mail.com")

		draft, err := tt.Blog.Posts.Create(context.Background(), june, PostInput{Title: str("Draft")})
		assert.NoError(t, err)

		_, err = tt.Blog.Comments.Create(context.Background(), carl, draft.ID, "Sneaky")
		assert.True(t, ErrNotFound.Is(err))

		_, err = tt.Blog.Comments.Create(context.Background(), june, draft.ID, "Note to self")
		assert.NoError(t, err)
	})
}

func TestCommentsReply(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		carl := signup(t, tt.Blog, "Carl", "carl@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), carl, post.ID, "First!")
		assert.NoError(t, err)

		reply1, err := tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Thanks!")
		assert.NoError(t, err)
		assert.Equal(t, root.ID, *reply1.Parent)
		assert.Equal(t, post.ID, reply1.Post)

		reply2, err := tt.Blog.Comments.Reply(context.Background(), carl, root.ID, "You're welcome!")
		assert.NoError(t, err)

		var stored Comment
		assert.True(t, tt.Fetch(CommentsCollection, root.ID, &stored))
		assert.Equal(t, []coal.ID{reply1.ID, reply2.ID}, stored.Comments)

		var storedPost Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
		assert.Equal(t, int64(3), storedPost.CommentCount)

		_, err = tt.Blog.Comments.Reply(context.Background(), carl, coal.New(), "Lost")
		assert.True(t, ErrNotFound.Is(err))
	})
}

func TestCommentsReplyFault(t *testing.T) {
	for _, step := range []string{"inserted", "linked"} {
		withTester(t, func(t *testing.T, tt *Tester) {
			june := signup(t, tt.Blog, "June", "june@mail.com")
			post := publishedPost(t, tt.Blog, june, "Hello World")

			root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
			assert.NoError(t, err)

			withFault(t, func(s string) error {
				if s == step {
					return xo.F("fault")
				}
				return nil
			})

			_, err = tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Thanks!")
			assert.Error(t, err)
			assert.Equal(t, "fault", err.Error())

			// nothing changed
			assert.Equal(t, 1, tt.Count(CommentsCollection, nil))

			var stored Comment
			assert.True(t, tt.Fetch(CommentsCollection, root.ID, &stored))
			assert.Empty(t, stored.Comments)

			var storedPost Post
			assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
			assert.Equal(t, int64(1), storedPost.CommentCount)
		})
	}
}

func TestCommentsCreateFault(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		withFault(t, func(string) error {
			return xo.F("fault")
		})

		_, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.Error(t, err)
		assert.Equal(t, 0, tt.Count(CommentsCollection, nil))

		var stored Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &stored))
		assert.Equal(t, int64(0), stored.CommentCount)
	})
}

func TestCommentsFind(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		reply, err := tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Second!")
		assert.NoError(t, err)

		view, err := tt.Blog.Comments.Find(context.Background(), nil, root.ID)
		assert.NoError(t, err)
		assert.Equal(t, "First!", view.Text)
		assert.Equal(t, "June", view.User.Name)
		assert.Equal(t, []coal.ID{reply.ID}, view.Comments)
		assert.Len(t, view.Replies, 1)
		assert.Equal(t, "Second!", view.Replies[0].Text)
		assert.Equal(t, "June", view.Replies[0].User.Name)
		assert.NotNil(t, view.Replies[0].Replies)
		assert.Empty(t, view.Replies[0].Replies)

		// a leaf has an empty list of replies
		leaf, err := tt.Blog.Comments.Find(context.Background(), nil, reply.ID)
		assert.NoError(t, err)
		assert.Equal(t, []CommentView{}, leaf.Replies)

		_, err = tt.Blog.Comments.Find(context.Background(), nil, coal.New())
		assert.True(t, ErrNotFound.Is(err))
	})
}

func TestCommentsFindRepair(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		reply, err := tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Second!")
		assert.NoError(t, err)

		// corrupt the cache
		_, err = tt.Store.C(CommentsCollection).UpdateOne(context.Background(), bson.M{
			"_id": root.ID,
		}, bson.M{
			"$set": bson.M{"comments": []coal.ID{coal.New()}},
		})
		assert.NoError(t, err)

		view, err := tt.Blog.Comments.Find(context.Background(), nil, root.ID)
		assert.NoError(t, err)
		assert.Equal(t, []coal.ID{reply.ID}, view.Comments)

		var stored Comment
		assert.True(t, tt.Fetch(CommentsCollection, root.ID, &stored))
		assert.Equal(t, []coal.ID{reply.ID}, stored.Comments)
	})
}

func TestCommentsUpdate(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		admin := promote(t, tt.Blog, signup(t, tt.Blog, "Gabriel", "gaby@mail.com"))
		post := publishedPost(t, tt.Blog, june, "Hello World")

		comment, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)

		updated, err := tt.Blog.Comments.Update(context.Background(), june, comment.ID, "Edited")
		assert.NoError(t, err)
		assert.Equal(t, "Edited", updated.Text)

		// only the author may edit
		_, err = tt.Blog.Comments.Update(context.Background(), admin, comment.ID, "Admin edit")
		assert.True(t, ErrAccessDenied.Is(err))

		_, err = tt.Blog.Comments.Update(context.Background(), nil, comment.ID, "Anonymous")
		assert.True(t, ErrUnauthorized.Is(err))

		var stored Comment
		assert.True(t, tt.Fetch(CommentsCollection, comment.ID, &stored))
		assert.Equal(t, "Edited", stored.Text)
	})
}

func TestCommentsSoftDelete(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		carl := signup(t, tt.Blog, "Carl", "carl@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		reply, err := tt.Blog.Comments.Reply(context.Background(), carl, root.ID, "Second!")
		assert.NoError(t, err)

		_, err = tt.Blog.Comments.SoftDelete(context.Background(), carl, root.ID)
		assert.True(t, ErrAccessDenied.Is(err))

		deleted, err := tt.Blog.Comments.SoftDelete(context.Background(), june, root.ID)
		assert.NoError(t, err)
		assert.True(t, deleted.Deleted())

		// the tree and the count are kept
		var stored Comment
		assert.True(t, tt.Fetch(CommentsCollection, root.ID, &stored))
		assert.True(t, stored.Deleted())
		assert.Equal(t, []coal.ID{reply.ID}, stored.Comments)
		assert.Equal(t, 2, tt.Count(CommentsCollection, nil))

		var storedPost Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
		assert.Equal(t, int64(2), storedPost.CommentCount)

		// deleted comments without author are left to admins
		_, err = tt.Blog.Comments.SoftDelete(context.Background(), june, root.ID)
		assert.True(t, ErrAccessDenied.Is(err))
	})
}

func TestCommentsPurge(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		admin := promote(t, tt.Blog, signup(t, tt.Blog, "Gabriel", "gaby@mail.com"))
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		reply1, err := tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Second!")
		assert.NoError(t, err)
		reply2, err := tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Third!")
		assert.NoError(t, err)
		_, err = tt.Blog.Comments.Reply(context.Background(), june, reply1.ID, "Fourth!")
		assert.NoError(t, err)
		other, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "Other")
		assert.NoError(t, err)

		_, err = tt.Blog.Comments.Purge(context.Background(), june, reply1.ID)
		assert.True(t, ErrAccessDenied.Is(err))

		// purge a subtree
		n, err := tt.Blog.Comments.Purge(context.Background(), admin, reply1.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), n)

		var stored Comment
		assert.True(t, tt.Fetch(CommentsCollection, root.ID, &stored))
		assert.Equal(t, []coal.ID{reply2.ID}, stored.Comments)

		var storedPost Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
		assert.Equal(t, int64(3), storedPost.CommentCount)

		// purge a root
		n, err = tt.Blog.Comments.Purge(context.Background(), admin, root.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), n)

		assert.Equal(t, 1, tt.Count(CommentsCollection, nil))
		assert.True(t, tt.Fetch(CommentsCollection, other.ID, &stored))
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
		assert.Equal(t, int64(1), storedPost.CommentCount)

		_, err = tt.Blog.Comments.Purge(context.Background(), admin, root.ID)
		assert.True(t, ErrNotFound.Is(err))
	})
}

func TestCommentsPurgeFault(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		admin := promote(t, tt.Blog, signup(t, tt.Blog, "Gabriel", "gaby@mail.com"))
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		_, err = tt.Blog.Comments.Reply(context.Background(), june, root.ID, "Second!")
		assert.NoError(t, err)

		withFault(t, func(step string) error {
			if step == "deleted" {
				return xo.F("fault")
			}
			return nil
		})

		_, err = tt.Blog.Comments.Purge(context.Background(), admin, root.ID)
		assert.Error(t, err)
		assert.Equal(t, 2, tt.Count(CommentsCollection, nil))

		var storedPost Post
		assert.True(t, tt.Fetch(PostsCollection, post.ID, &storedPost))
		assert.Equal(t, int64(2), storedPost.CommentCount)
	})
}

func TestCommentsListAggregate(t *testing.T) {
	withMongo(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		carl := signup(t, tt.Blog, "Carl", "carl@mail.com")
		post := publishedPost(t, tt.Blog, june, "Hello World")

		root, err := tt.Blog.Comments.Create(context.Background(), june, post.ID, "First!")
		assert.NoError(t, err)
		reply, err := tt.Blog.Comments.Reply(context.Background(), carl, root.ID, "Second!")
		assert.NoError(t, err)
		nested, err := tt.Blog.Comments.Reply(context.Background(), june, reply.ID, "Third!")
		assert.NoError(t, err)
		_, err = tt.Blog.Comments.Reply(context.Background(), carl, nested.ID, "Fourth!")
		assert.NoError(t, err)

		comments, err := tt.Blog.Comments.List(context.Background(), nil, post.ID, page.Query{Limit: 10})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), comments.Metadata.Count)
		assert.Len(t, comments.Results, 1)

		// two levels of replies are attached
		view := comments.Results[0]
		assert.Equal(t, "June", view.User.Name)
		assert.Len(t, view.Replies, 1)
		assert.Equal(t, "Carl", view.Replies[0].User.Name)
		assert.Len(t, view.Replies[0].Replies, 1)
		assert.Equal(t, nested.ID, view.Replies[0].Replies[0].ID)
		assert.NotNil(t, view.Replies[0].Replies[0].Replies)
		assert.Empty(t, view.Replies[0].Replies[0].Replies)

		replies, err := tt.Blog.Comments.Replies(context.Background(), nil, nested.ID, page.Query{Limit: 10})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), replies.Metadata.Count)
		assert.Equal(t, "Fourth!", replies.Results[0].Text)

		feed, err := tt.Blog.Comments.Feed(context.Background(), nil, page.Query{Limit: 2})
		assert.NoError(t, err)
		assert.Equal(t, int64(4), feed.Metadata.Count)
		assert.Len(t, feed.Results, 2)
		assert.Equal(t, "Hello World", feed.Results[0].Post.Title)
		assert.NotNil(t, feed.Metadata.NextPageParams)
	})
}

func TestCommentsFeedFilter(t *testing.T) {
	withTester(t, func(t *testing.T, tt *Tester) {
		june := signup(t, tt.Blog, "June", "june@mail.com")
		carl := signup(t, tt.Blog, "Carl", "carl@mail.com")
		admin := promote(t, tt.Blog, signup(t, tt.Blog, "Ada", "ada@mail.com"))

		post := publishedPost(t, tt.Blog, june, "Hello World")
		draft, err := tt.Blog.Posts.Create(context.Background(), june, PostInput{Title: str("Draft")})
		assert.NoError(t, err)

		filter, err := tt.Blog.Comments.feedFilter(context.Background(), nil)
		assert.NoError(t, err)
		assert.Equal(t, bson.M{"post": bson.M{"$in": []coal.ID{post.ID}}}, filter)

		filter, err = tt.Blog.Comments.feedFilter(context.Background(), carl)
		assert.NoError(t, err)
		assert.Equal(t, bson.M{"post": bson.M{"$in": []coal.ID{post.ID}}}, filter)

		filter, err = tt.Blog.Comments.feedFilter(context.Background(), june)
		assert.NoError(t, err)
		assert.ElementsMatch(t, []coal.ID{post.ID, draft.ID}, filter["post"].(bson.M)["$in"])

		filter, err = tt.Blog.Comments.feedFilter(context.Background(), admin)
		assert.NoError(t, err)
		assert.Equal(t, bson.M{}, filter)
	})
}

func withFault(t *testing.T, fn func(step string) error) {
	faultHook = fn
	t.Cleanup(func() {
		faultHook = nil
	})
}
