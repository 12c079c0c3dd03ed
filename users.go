package quill

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
	"github.com/256dpi/quill/page"
	"github.com/256dpi/quill/stick"
)

// UserUpdate describes a change to a user profile.
type UserUpdate struct {
	Name *string `json:"name"`
}

// Users manages users.
type Users struct {
	store    *coal.Store
	images   *blaze.Images
	searcher Searcher
}

// Signup will register a new user.
func (u *Users) Signup(ctx context.Context, name, email, password string) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.Signup")
	defer span.End()

	// prepare user
	user := &User{
		ID:         coal.New(),
		Name:       strings.TrimSpace(name),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		SavedPosts: []coal.ID{},
		CreatedAt:  time.Now(),
	}
	if u.images != nil {
		user.Image = u.images.Placeholder
	}

	// validate
	err := user.Validate()
	if err != nil {
		return nil, err
	}
	err = stick.Validate(func(v *stick.Validator) {
		v.Value("password", password, stick.IsNotZero, stick.IsMinLen(8), stick.IsMaxLen(72))
	})
	if err != nil {
		return nil, err
	}

	// check email
	n, err := u.store.C(UsersCollection).CountDocuments(ctx, bson.M{
		"email": user.Email,
	})
	if err != nil {
		return nil, err
	} else if n > 0 {
		return nil, stick.Invalid("email", "email already in use")
	}

	// hash password
	user.Password, err = heat.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// insert user
	_, err = u.store.C(UsersCollection).InsertOne(ctx, user)
	if coal.IsDuplicate(err) {
		return nil, stick.Invalid("email", "email already in use")
	} else if err != nil {
		return nil, err
	}

	return user, nil
}

// Find will return the user with the provided id.
func (u *Users) Find(ctx context.Context, id coal.ID) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.Find")
	span.Tag("id", id.Hex())
	defer span.End()

	// find user
	var user User
	found, err := u.store.C(UsersCollection).FindOne(ctx, &user, bson.M{
		"_id": id,
	})
	if err != nil {
		return nil, err
	} else if !found {
		return nil, ErrNotFound.Wrap()
	}

	return &user, nil
}

// List will return a page of users optionally filtered by their flags.
func (u *Users) List(ctx context.Context, query page.Query, isAdmin, isBanned *bool) (*page.Page[User], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.List")
	defer span.End()

	// prepare filter
	query.Filter = bson.M{}
	if isAdmin != nil {
		query.Filter["is_admin"] = *isAdmin
	}
	if isBanned != nil {
		query.Filter["is_banned"] = *isBanned
	}

	return page.Fetch[User](ctx, u.store.C(UsersCollection), userListing(u.searcher), query)
}

// Update will update the profile of the user.
func (u *Users) Update(ctx context.Context, principal *Principal, id coal.ID, update UserUpdate) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.Update")
	span.Tag("id", id.Hex())
	defer span.End()

	// authorize
	err := Authorize(principal, id)
	if err != nil {
		return nil, err
	}

	// find user
	user, err := u.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	// apply update
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}

	// validate
	err = user.Validate()
	if err != nil {
		return nil, err
	}

	// update user
	_, err = u.store.C(UsersCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": bson.M{
			"name": user.Name,
		},
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// SetImage will store the image and set it as the profile image of the user.
func (u *Users) SetImage(ctx context.Context, principal *Principal, id coal.ID, filename, mediaType string, r io.Reader, size int64) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.SetImage")
	span.Tag("id", id.Hex())
	defer span.End()

	// check images
	if u.images == nil {
		return nil, ErrNotFound.Wrap()
	}

	// authorize
	err := Authorize(principal, id)
	if err != nil {
		return nil, err
	}

	// find user
	user, err := u.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	// store image
	url, err := u.images.Replace(ctx, user.Image, filename, mediaType, r, size)
	if err != nil {
		return nil, err
	}

	// update user
	_, err = u.store.C(UsersCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": bson.M{
			"image": url,
		},
	})
	if err != nil {
		return nil, err
	}

	// set image
	user.Image = url

	return user, nil
}

// SetFlags will change the admin and banned flags of the user. Only admins may
// change flags and an admin may not ban themselves.
func (u *Users) SetFlags(ctx context.Context, principal *Principal, id coal.ID, isAdmin, isBanned *bool) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.SetFlags")
	span.Tag("id", id.Hex())
	defer span.End()

	// authorize
	err := RequireAdmin(principal)
	if err != nil {
		return nil, err
	}

	// check self ban
	if isBanned != nil && *isBanned && principal.ID() == id {
		return nil, stick.Invalid("is_banned", "admins cannot ban themselves")
	}

	// find user
	user, err := u.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	// prepare update
	set := bson.M{}
	if isAdmin != nil {
		user.IsAdmin = *isAdmin
		set["is_admin"] = *isAdmin
	}
	if isBanned != nil {
		user.IsBanned = *isBanned
		set["is_banned"] = *isBanned
	}
	if len(set) == 0 {
		return user, nil
	}

	// update user
	_, err = u.store.C(UsersCollection).UpdateOne(ctx, bson.M{
		"_id": id,
	}, bson.M{
		"$set": set,
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Delete will delete the user. Posts and comments of the user remain, with
// the author of comments removed.
func (u *Users) Delete(ctx context.Context, principal *Principal, id coal.ID) error {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.Delete")
	span.Tag("id", id.Hex())
	defer span.End()

	// authorize
	err := Authorize(principal, id)
	if err != nil {
		return err
	}

	return u.store.T(ctx, func(ctx context.Context) error {
		// delete user
		res, err := u.store.C(UsersCollection).DeleteOne(ctx, bson.M{
			"_id": id,
		})
		if err != nil {
			return err
		} else if res.DeletedCount == 0 {
			return ErrNotFound.Wrap()
		}

		// remove author from comments
		_, err = u.store.C(CommentsCollection).UpdateMany(ctx, bson.M{
			"user": id,
		}, bson.M{
			"$set": bson.M{
				"user": nil,
			},
		})
		if err != nil {
			return err
		}

		return nil
	})
}

// SavePost will add the post to the saved posts of the user.
func (u *Users) SavePost(ctx context.Context, principal *Principal, id, post coal.ID) (*User, error) {
	return u.changeSaved(ctx, principal, id, post, true)
}

// UnsavePost will remove the post from the saved posts of the user.
func (u *Users) UnsavePost(ctx context.Context, principal *Principal, id, post coal.ID) (*User, error) {
	return u.changeSaved(ctx, principal, id, post, false)
}

func (u *Users) changeSaved(ctx context.Context, principal *Principal, id, post coal.ID, save bool) (*User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.changeSaved")
	span.Tag("id", id.Hex())
	span.Tag("post", post.Hex())
	span.Tag("save", save)
	defer span.End()

	// authorize
	err := Authorize(principal, id)
	if err != nil {
		return nil, err
	}

	var user *User
	err = u.store.T(ctx, func(ctx context.Context) error {
		// find user
		user, err = u.Find(ctx, id)
		if err != nil {
			return err
		}

		// check post
		if save {
			n, err := u.store.C(PostsCollection).CountDocuments(ctx, bson.M{
				"_id": post,
			})
			if err != nil {
				return err
			} else if n == 0 {
				return ErrNotFound.Wrap()
			}
		}

		// check change
		if coal.Contains(user.SavedPosts, post) == save {
			return nil
		}

		// compute list
		saved := coal.Subtract(user.SavedPosts, []coal.ID{post})
		if save {
			saved = append(saved, post)
		}

		// update user
		_, err = u.store.C(UsersCollection).UpdateOne(ctx, bson.M{
			"_id": id,
		}, bson.M{
			"$set": bson.M{
				"saved_posts": saved,
			},
		})
		if err != nil {
			return err
		}

		// set list
		user.SavedPosts = saved

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// SavedPosts will return a page of the posts saved by the user.
func (u *Users) SavedPosts(ctx context.Context, principal *Principal, id coal.ID, query page.Query) (*page.Page[PostView], error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Users.SavedPosts")
	span.Tag("id", id.Hex())
	defer span.End()

	// authorize
	err := Authorize(principal, id)
	if err != nil {
		return nil, err
	}

	// find user
	user, err := u.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	// prepare filter
	saved := user.SavedPosts
	if saved == nil {
		saved = []coal.ID{}
	}
	query.Filter = bson.M{
		"_id": bson.M{"$in": saved},
	}
	if !principal.IsAdmin() {
		query.Filter["is_published"] = true
	}

	return page.Fetch[PostView](ctx, u.store.C(PostsCollection), postListing(u.searcher), query)
}
