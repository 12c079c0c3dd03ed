package quill

import (
	"context"
	"strings"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
)

// Comments manages comments and their reply trees.
type Comments struct {
	store    *coal.Store
	searcher Searcher
}

// faultHook is called between the writes of comment transactions. Tests set
// it to abort a transaction at a named step.
var faultHook func(step string) error

// Create will create a root comment on the post.
func (c *Comments) Create(ctx context.Context, principal *Principal, post coal.ID, text string) (*Comment, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Create")
	span.Tag("post", post.Hex())
	defer span.End()

	// check principal
	if principal == nil {
		return nil, ErrUnauthorized.Wrap()
	}

	// check post
	err := c.checkPost(ctx, principal, post)
	if err != nil {
		return nil, err
	}

	// prepare comment
	comment := c.newComment(principal, post, nil, text)

	// validate
	err = comment.Validate()
	if err != nil {
		return nil, err
	}

	// insert comment and count it
	err = c.store.T(ctx, func(ctx context.Context) error {
		_, err := c.store.C(CommentsCollection).InsertOne(ctx, comment)
		if err != nil {
			return err
		}

		// check fault
		err = checkFault("inserted")
		if err != nil {
			return err
		}

		return c.count(ctx, post, 1)
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// Reply will create a reply to the parent comment. The reply is inserted, the
// parent's child list extended and the post's comment count incremented in
// one transaction.
func (c *Comments) Reply(ctx context.Context, principal *Principal, parent coal.ID, text string) (*Comment, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Reply")
	span.Tag("parent", parent.Hex())
	defer span.End()

	// check principal
	if principal == nil {
		return nil, ErrUnauthorized.Wrap()
	}

	var reply *Comment
	err := c.store.T(ctx, func(ctx context.Context) error {
		// find parent
		parentComment, err := c.find(ctx, parent)
		if err != nil {
			return err
		}

		// check post
		err = c.checkPost(ctx, principal, parentComment.Post)
		if err != nil {
			return err
		}

		// prepare reply
		reply = c.newComment(principal, parentComment.Post, &parent, text)

		// validate
		err = reply.Validate()
		if err != nil {
			return err
		}

		// insert reply
		_, err = c.store.C(CommentsCollection).InsertOne(ctx, reply)
		if err != nil {
			return err
		}

		// check fault
		err = checkFault("inserted")
		if err != nil {
			return err
		}

		// append to parent
		_, err = c.store.C(CommentsCollection).UpdateOne(ctx, bson.M{
			"_id": parent,
		}, bson.M{
			"$set": bson.M{
				"comments": append(coal.Subtract(parentComment.Comments, []coal.ID{reply.ID}), reply.ID),
			},
		})
		if err != nil {
			return err
		}

		// check fault
		err = checkFault("linked")
		if err != nil {
			return err
		}

		return c.count(ctx, parentComment.Post, 1)
	})
	if err != nil {
		return nil, err
	}

	return reply, nil
}

// List will return a page of the root comments of the post with two levels of
// replies attached.
func (c *Comments) List(ctx context.Context, principal *Principal, post coal.ID, query page.Query) (*page.Page[CommentView], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.List")
	span.Tag("post", post.Hex())
	defer span.End()

	// check post
	err := c.checkPost(ctx, principal, post)
	if err != nil {
		return nil, err
	}

	// set filter
	query.Filter = bson.M{
		"post":           post,
		"parent_comment": nil,
	}

	return page.Fetch[CommentView](ctx, c.store.C(CommentsCollection), commentListing(c.searcher), query)
}

// Replies will return a page of the direct replies to the parent comment.
func (c *Comments) Replies(ctx context.Context, principal *Principal, parent coal.ID, query page.Query) (*page.Page[CommentView], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Replies")
	span.Tag("parent", parent.Hex())
	defer span.End()

	// find parent
	parentComment, err := c.find(ctx, parent)
	if err != nil {
		return nil, err
	}

	// check post
	err = c.checkPost(ctx, principal, parentComment.Post)
	if err != nil {
		return nil, err
	}

	// set filter
	query.Filter = bson.M{
		"parent_comment": parent,
	}

	return page.Fetch[CommentView](ctx, c.store.C(CommentsCollection), commentListing(c.searcher), query)
}

// Feed will return a page of all comments with their author and post
// attached. Comments on drafts are only included for admins and the author
// of the draft.
func (c *Comments) Feed(ctx context.Context, principal *Principal, query page.Query) (*page.Page[FeedComment], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Feed")
	defer span.End()

	// prepare filter
	filter, err := c.feedFilter(ctx, principal)
	if err != nil {
		return nil, err
	}
	query.Filter = filter

	return page.Fetch[FeedComment](ctx, c.store.C(CommentsCollection), feedListing(c.searcher), query)
}

// feedFilter restricts the feed to the posts visible to the principal.
func (c *Comments) feedFilter(ctx context.Context, principal *Principal) (bson.M, error) {
	// admins see everything
	if principal.IsAdmin() {
		return bson.M{}, nil
	}

	// prepare visibility
	visible := bson.M{"is_published": true}
	if principal != nil && principal.User != nil {
		visible = bson.M{"$or": bson.A{
			bson.M{"is_published": true},
			bson.M{"author": principal.ID()},
		}}
	}

	// find visible posts
	var posts []struct {
		ID coal.ID `bson:"_id"`
	}
	err := c.store.C(PostsCollection).FindAll(ctx, &posts, visible, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}

	// collect ids
	ids := make([]coal.ID, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	return bson.M{"post": bson.M{"$in": ids}}, nil
}

// Find will return the comment with its author and its direct replies
// attached. The cached list of
// replies is compared with the replies pointing to the comment and repaired
// if it has diverged.
func (c *Comments) Find(ctx context.Context, principal *Principal, id coal.ID) (*CommentView, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Find")
	span.Tag("id", id.Hex())
	defer span.End()

	// find comment
	comment, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	// check post
	err = c.checkPost(ctx, principal, comment.Post)
	if err != nil {
		return nil, err
	}

	// find replies
	children, err := c.children(ctx, []coal.ID{id})
	if err != nil {
		return nil, err
	}

	// repair cache
	if !sameIDs(children, comment.Comments) {
		_, err = c.store.C(CommentsCollection).UpdateOne(ctx, bson.M{
			"_id": id,
		}, bson.M{
			"$set": bson.M{
				"comments": children,
			},
		})
		if err != nil {
			return nil, err
		}

		comment.Comments = children
	}

	// load replies
	var replies []Comment
	err = c.store.C(CommentsCollection).FindAll(ctx, &replies, bson.M{
		"parent_comment": id,
	}, options.Find().SetSort(page.Order()))
	if err != nil {
		return nil, err
	}

	// prepare views
	views, err := c.views(ctx, append([]Comment{*comment}, replies...))
	if err != nil {
		return nil, err
	}

	// attach replies
	view := &views[0]
	view.Replies = views[1:]

	return view, nil
}

// views converts the comments to views with their authors attached and an
// empty list of replies.
func (c *Comments) views(ctx context.Context, comments []Comment) ([]CommentView, error) {
	// collect authors
	var ids []coal.ID
	for _, comment := range comments {
		if comment.User != nil {
			ids = append(ids, *comment.User)
		}
	}

	// find authors
	var authors []UserSummary
	if len(ids) > 0 {
		err := c.store.C(UsersCollection).FindAll(ctx, &authors, bson.M{
			"_id": bson.M{"$in": ids},
		}, options.Find().SetProjection(userSummary))
		if err != nil {
			return nil, err
		}
	}

	// index authors
	index := make(map[coal.ID]*UserSummary, len(authors))
	for i := range authors {
		index[authors[i].ID] = &authors[i]
	}

	// build views
	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		view := CommentView{
			ID:        comment.ID,
			Post:      comment.Post,
			Text:      comment.Text,
			Parent:    comment.Parent,
			Comments:  comment.Comments,
			Replies:   []CommentView{},
			CreatedAt: comment.CreatedAt,
			UpdatedAt: comment.UpdatedAt,
		}
		if comment.User != nil {
			view.User = index[*comment.User]
		}
		views = append(views, view)
	}

	return views, nil
}

// Update will change the text of the comment. Only the author may change a
// comment.
func (c *Comments) Update(ctx context.Context, principal *Principal, id coal.ID, text string) (*Comment, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Update")
	span.Tag("id", id.Hex())
	defer span.End()

	// check principal
	if principal == nil {
		return nil, ErrUnauthorized.Wrap()
	}

	// find comment
	comment, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	// check author
	if comment.User == nil || *comment.User != principal.ID() {
		return nil, ErrAccessDenied.Wrap()
	}

	// apply text
	comment.Text = strings.TrimSpace(text)
	comment.UpdatedAt = time.Now()

	// validate
	err = comment.Validate()
	if err != nil {
		return nil, err
	}

	// update comment
	_, err = c.store.C(CommentsCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": bson.M{
			"text":      comment.Text,
			"updatedAt": comment.UpdatedAt,
		},
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// SoftDelete will remove the text and author of the comment while keeping
// its position in the reply tree.
func (c *Comments) SoftDelete(ctx context.Context, principal *Principal, id coal.ID) (*Comment, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.SoftDelete")
	span.Tag("id", id.Hex())
	defer span.End()

	var comment *Comment
	err := c.store.T(ctx, func(ctx context.Context) error {
		// find comment
		var err error
		comment, err = c.find(ctx, id)
		if err != nil {
			return err
		}

		// authorize
		var owner coal.ID
		if comment.User != nil {
			owner = *comment.User
		}
		err = Authorize(principal, owner)
		if err != nil {
			return err
		}

		// clear comment
		comment.Text = ""
		comment.User = nil
		comment.UpdatedAt = time.Now()

		// update comment
		_, err = c.store.C(CommentsCollection).UpdateOne(ctx, bson.M{
			"_id": id,
		}, bson.M{
			"$set": bson.M{
				"text":      comment.Text,
				"user":      nil,
				"updatedAt": comment.UpdatedAt,
			},
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// Purge will delete the comment and all of its replies. The comment is
// removed from its parent and the post's comment count is reduced by the
// number of deleted comments in one transaction.
func (c *Comments) Purge(ctx context.Context, principal *Principal, id coal.ID) (int64, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Comments.Purge")
	span.Tag("id", id.Hex())
	defer span.End()

	// authorize
	err := RequireAdmin(principal)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = c.store.T(ctx, func(ctx context.Context) error {
		// find comment
		comment, err := c.find(ctx, id)
		if err != nil {
			return err
		}

		// collect tree
		tree := []coal.ID{id}
		level := []coal.ID{id}
		for len(level) > 0 {
			level, err = c.children(ctx, level)
			if err != nil {
				return err
			}
			tree = append(tree, level...)
		}

		// delete tree
		res, err := c.store.C(CommentsCollection).DeleteMany(ctx, bson.M{
			"_id": bson.M{"$in": tree},
		})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount

		// check fault
		err = checkFault("deleted")
		if err != nil {
			return err
		}

		// remove from parent
		if comment.Parent != nil {
			var parent Comment
			found, err := c.store.C(CommentsCollection).FindOne(ctx, &parent, bson.M{
				"_id": *comment.Parent,
			})
			if err != nil {
				return err
			} else if found {
				_, err = c.store.C(CommentsCollection).UpdateOne(ctx, bson.M{
					"_id": parent.ID,
				}, bson.M{
					"$set": bson.M{
						"comments": coal.Subtract(parent.Comments, []coal.ID{id}),
					},
				})
				if err != nil {
					return err
				}
			}
		}

		return c.count(ctx, comment.Post, -deleted)
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func (c *Comments) newComment(principal *Principal, post coal.ID, parent *coal.ID, text string) *Comment {
	now := time.Now()
	user := principal.ID()

	return &Comment{
		ID:        coal.New(),
		Post:      post,
		User:      &user,
		Text:      strings.TrimSpace(text),
		Parent:    parent,
		Comments:  []coal.ID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Comments) find(ctx context.Context, id coal.ID) (*Comment, error) {
	var comment Comment
	found, err := c.store.C(CommentsCollection).FindOne(ctx, &comment, bson.M{
		"_id": id,
	})
	if err != nil {
		return nil, err
	} else if !found {
		return nil, ErrNotFound.Wrap()
	}

	return &comment, nil
}

// children returns the ids of the comments pointing to one of the parents
// in creation order.
func (c *Comments) children(ctx context.Context, parents []coal.ID) ([]coal.ID, error) {
	// find children
	var children []struct {
		ID coal.ID `bson:"_id"`
	}
	err := c.store.C(CommentsCollection).FindAll(ctx, &children, bson.M{
		"parent_comment": bson.M{"$in": parents},
	}, options.Find().SetSort(coal.Sort("createdAt", "_id")).SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}

	// collect ids
	ids := make([]coal.ID, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}

	return ids, nil
}

// checkPost ensures the post exists and is visible to the principal.
func (c *Comments) checkPost(ctx context.Context, principal *Principal, id coal.ID) error {
	var post Post
	found, err := c.store.C(PostsCollection).FindOne(ctx, &post, bson.M{
		"_id": id,
	})
	if err != nil {
		return err
	} else if !found {
		return ErrNotFound.Wrap()
	}

	// check visibility
	if !post.IsPublished && !principal.IsAdmin() && principal.ID() != post.Author {
		return ErrNotFound.Wrap()
	}

	return nil
}

func (c *Comments) count(ctx context.Context, post coal.ID, delta int64) error {
	_, err := c.store.C(PostsCollection).UpdateOne(ctx, bson.M{
		"_id": post,
	}, bson.M{
		"$inc": bson.M{
			"comment_count": delta,
		},
	})

	return err
}

func checkFault(step string) error {
	if faultHook != nil {
		return faultHook(step)
	}

	return nil
}

func sameIDs(a, b []coal.ID) bool {
	return len(a) == len(b) && len(coal.Subtract(a, b)) == 0
}
