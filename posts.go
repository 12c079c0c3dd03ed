package quill

import (
	"context"
	"io"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
)

// PostInput describes the fields of a new or changed post. Unset fields are
// left unchanged.
type PostInput struct {
	Title       *string `json:"title"`
	Summary     *string `json:"summary"`
	Text        *string `json:"text"`
	IsPublished *bool   `json:"is_published"`
}

func (i PostInput) apply(post *Post) {
	if i.Title != nil {
		post.Title = *i.Title
	}
	if i.Summary != nil {
		post.Summary = *i.Summary
	}
	if i.Text != nil {
		post.Text = *i.Text
	}
	if i.IsPublished != nil {
		post.IsPublished = *i.IsPublished
	}
}

// Posts manages posts.
type Posts struct {
	store    *coal.Store
	images   *blaze.Images
	searcher Searcher
}

// Create will create a post authored by the principal.
func (p *Posts) Create(ctx context.Context, principal *Principal, input PostInput) (*Post, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.Create")
	defer span.End()

	// check principal
	if principal == nil {
		return nil, ErrUnauthorized.Wrap()
	}

	// prepare post
	now := time.Now()
	post := &Post{
		ID:        coal.New(),
		Author:    principal.ID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.images != nil {
		post.Image = p.images.Placeholder
	}

	// apply input
	input.apply(post)
	post.Sanitize()

	// validate
	err := post.Validate()
	if err != nil {
		return nil, err
	}

	// insert post
	_, err = p.store.C(PostsCollection).InsertOne(ctx, post)
	if err != nil {
		return nil, err
	}

	return post, nil
}

// Find will return the post with its author attached. Unpublished posts are
// only visible to their author and admins.
func (p *Posts) Find(ctx context.Context, principal *Principal, id coal.ID) (*PostView, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.Find")
	span.Tag("id", id.Hex())
	defer span.End()

	// find post
	post, err := p.find(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	// find author
	var author UserSummary
	found, err := p.store.C(UsersCollection).FindOne(ctx, &author, bson.M{
		"_id": post.Author,
	})
	if err != nil {
		return nil, err
	}

	// prepare view
	view := &PostView{
		ID:           post.ID,
		Title:        post.Title,
		Summary:      post.Summary,
		Text:         post.Text,
		Image:        post.Image,
		IsPublished:  post.IsPublished,
		CommentCount: post.CommentCount,
		CreatedAt:    post.CreatedAt,
		UpdatedAt:    post.UpdatedAt,
	}
	if found {
		view.Author = &author
	}

	return view, nil
}

// List will return a page of posts. Non-admins only see published posts,
// except for their own posts when listing by author.
func (p *Posts) List(ctx context.Context, principal *Principal, query page.Query, isPublished *bool, author *coal.ID) (*page.Page[PostView], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.List")
	defer span.End()

	// prepare filter
	query.Filter = bson.M{}
	if author != nil {
		query.Filter["author"] = *author
	}

	// check visibility
	if principal.IsAdmin() || (author != nil && principal != nil && *author == principal.ID()) {
		if isPublished != nil {
			query.Filter["is_published"] = *isPublished
		}
	} else {
		if isPublished != nil && !*isPublished {
			return page.Shape[PostView](nil, query.Limit), nil
		}
		query.Filter["is_published"] = true
	}

	return page.Fetch[PostView](ctx, p.store.C(PostsCollection), postListing(p.searcher), query)
}

// Update will change the post. Published posts are validated on every
// change.
func (p *Posts) Update(ctx context.Context, principal *Principal, id coal.ID, input PostInput) (*Post, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.Update")
	span.Tag("id", id.Hex())
	defer span.End()

	// find post
	post, err := p.find(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	// authorize
	err = Authorize(principal, post.Author)
	if err != nil {
		return nil, err
	}

	// apply input
	input.apply(post)
	post.Sanitize()
	post.UpdatedAt = time.Now()

	// validate
	err = post.Validate()
	if err != nil {
		return nil, err
	}

	// update post
	_, err = p.store.C(PostsCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": bson.M{
			"title":        post.Title,
			"summary":      post.Summary,
			"text":         post.Text,
			"is_published": post.IsPublished,
			"updatedAt":    post.UpdatedAt,
		},
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// Publish will publish the post.
func (p *Posts) Publish(ctx context.Context, principal *Principal, id coal.ID) (*Post, error) {
	published := true
	return p.Update(ctx, principal, id, PostInput{IsPublished: &published})
}

// Unpublish will turn the post back into a draft.
func (p *Posts) Unpublish(ctx context.Context, principal *Principal, id coal.ID) (*Post, error) {
	published := false
	return p.Update(ctx, principal, id, PostInput{IsPublished: &published})
}

// SetImage will store the image and set it as the image of the post.
func (p *Posts) SetImage(ctx context.Context, principal *Principal, id coal.ID, filename, mediaType string, r io.Reader, size int64) (*Post, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.SetImage")
	span.Tag("id", id.Hex())
	defer span.End()

	// check images
	if p.images == nil {
		return nil, ErrNotFound.Wrap()
	}

	// find post
	post, err := p.find(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	// authorize
	err = Authorize(principal, post.Author)
	if err != nil {
		return nil, err
	}

	// store image
	url, err := p.images.Replace(ctx, post.Image, filename, mediaType, r, size)
	if err != nil {
		return nil, err
	}

	// update post
	post.Image = url
	post.UpdatedAt = time.Now()
	_, err = p.store.C(PostsCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": bson.M{
			"image":     post.Image,
			"updatedAt": post.UpdatedAt,
		},
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// Delete will delete the post and all of its comments.
func (p *Posts) Delete(ctx context.Context, principal *Principal, id coal.ID) error {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.Delete")
	span.Tag("id", id.Hex())
	defer span.End()

	// find post
	post, err := p.find(ctx, principal, id)
	if err != nil {
		return err
	}

	// authorize
	err = Authorize(principal, post.Author)
	if err != nil {
		return err
	}

	return p.store.T(ctx, func(ctx context.Context) error {
		// delete post
		res, err := p.store.C(PostsCollection).DeleteOne(ctx, bson.M{
			"_id": id,
		})
		if err != nil {
			return err
		} else if res.DeletedCount == 0 {
			return ErrNotFound.Wrap()
		}

		// delete comments
		_, err = p.store.C(CommentsCollection).DeleteMany(ctx, bson.M{
			"post": id,
		})
		if err != nil {
			return err
		}

		return nil
	})
}

// CommentCount will return the number of comments on the post.
func (p *Posts) CommentCount(ctx context.Context, principal *Principal, id coal.ID) (int64, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Posts.CommentCount")
	span.Tag("id", id.Hex())
	defer span.End()

	// find post
	post, err := p.find(ctx, principal, id)
	if err != nil {
		return 0, err
	}

	return post.CommentCount, nil
}

func (p *Posts) find(ctx context.Context, principal *Principal, id coal.ID) (*Post, error) {
	// find post
	var post Post
	found, err := p.store.C(PostsCollection).FindOne(ctx, &post, bson.M{
		"_id": id,
	})
	if err != nil {
		return nil, err
	} else if !found {
		return nil, ErrNotFound.Wrap()
	}

	// check visibility
	if !post.IsPublished && !principal.IsAdmin() && principal.ID() != post.Author {
		return nil, ErrNotFound.Wrap()
	}

	return &post, nil
}
