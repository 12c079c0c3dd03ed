package quill

import (
	"io"
	"net/http"
	"time"

	"github.com/256dpi/oauth2/v2"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
)

type message struct {
	Message string `json:"message"`
}

func (a *API) signup(ctx *Context) error {
	// decode body
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := ctx.Decode(&body)
	if err != nil {
		return err
	}

	// create user
	user, err := a.blog.Users.Signup(ctx, body.Name, body.Email, body.Password)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusCreated, user)
}

func (a *API) login(ctx *Context) error {
	// decode body
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := ctx.Decode(&body)
	if err != nil {
		return err
	}

	// login
	tokens, _, err := a.blog.Auth.Login(ctx, body.Email, body.Password)
	if err != nil {
		return err
	}

	// set refresh token
	ctx.setRefreshCookie(tokens.RefreshToken, tokens.RefreshExpiry)

	// write access token
	res := oauth2.NewBearerTokenResponse(tokens.AccessToken, int(time.Until(tokens.AccessExpiry)/time.Second))

	return oauth2.WriteTokenResponse(ctx.Writer, res)
}

func (a *API) refresh(ctx *Context) error {
	// get refresh token
	var token string
	cookie, err := ctx.Request.Cookie(a.blog.Config.RefreshCookie)
	if err == nil {
		token = cookie.Value
	}

	// refresh
	access, expiry, err := a.blog.Auth.Refresh(ctx, token)
	if err != nil {
		return err
	}

	// write access token
	res := oauth2.NewBearerTokenResponse(access, int(time.Until(expiry)/time.Second))

	return oauth2.WriteTokenResponse(ctx.Writer, res)
}

func (a *API) logout(ctx *Context) error {
	// clear refresh token
	ctx.setRefreshCookie("", time.Unix(0, 0))

	return ctx.Write(http.StatusOK, message{Message: "logged out"})
}

func (a *API) listUsers(ctx *Context) error {
	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// get filters
	values := ctx.Request.URL.Query()
	isAdmin, err := page.Flag(values, "is_admin")
	if err != nil {
		return err
	}
	isBanned, err := page.Flag(values, "is_banned")
	if err != nil {
		return err
	}

	// list users
	users, err := a.blog.Users.List(ctx, query, isAdmin, isBanned)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, users)
}

func (a *API) getUser(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// find user
	user, err := a.blog.Users.Find(ctx, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, user)
}

func (a *API) updateUser(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var update UserUpdate
	err = ctx.Decode(&update)
	if err != nil {
		return err
	}

	// update user
	user, err := a.blog.Users.Update(ctx, ctx.Principal, id, update)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, user)
}

func (a *API) setUserFlags(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var body struct {
		IsAdmin  *bool `json:"is_admin"`
		IsBanned *bool `json:"is_banned"`
	}
	err = ctx.Decode(&body)
	if err != nil {
		return err
	}

	// set flags
	user, err := a.blog.Users.SetFlags(ctx, ctx.Principal, id, body.IsAdmin, body.IsBanned)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, user)
}

func (a *API) deleteUser(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// delete user
	err = a.blog.Users.Delete(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, message{Message: "user deleted"})
}

func (a *API) setUserImage(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	return ctx.Image(func(filename, mediaType string, r io.Reader, size int64) error {
		// set image
		user, err := a.blog.Users.SetImage(ctx, ctx.Principal, id, filename, mediaType, r, size)
		if err != nil {
			return err
		}

		return ctx.Write(http.StatusOK, user)
	})
}

func (a *API) listUserPosts(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	return a.writePosts(ctx, &id)
}

func (a *API) listSavedPosts(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// list posts
	posts, err := a.blog.Users.SavedPosts(ctx, ctx.Principal, id, query)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, posts)
}

func (a *API) savePost(ctx *Context) error {
	return a.changeSaved(ctx, true)
}

func (a *API) unsavePost(ctx *Context) error {
	return a.changeSaved(ctx, false)
}

func (a *API) changeSaved(ctx *Context, save bool) error {
	// get ids
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}
	post, err := ctx.ID("post")
	if err != nil {
		return err
	}

	// change saved posts
	var user *User
	if save {
		user, err = a.blog.Users.SavePost(ctx, ctx.Principal, id, post)
	} else {
		user, err = a.blog.Users.UnsavePost(ctx, ctx.Principal, id, post)
	}
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, user)
}

func (a *API) listPosts(ctx *Context) error {
	return a.writePosts(ctx, nil)
}

func (a *API) writePosts(ctx *Context, author *coal.ID) error {
	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// get filter
	isPublished, err := page.Flag(ctx.Request.URL.Query(), "is_published")
	if err != nil {
		return err
	}

	// list posts
	posts, err := a.blog.Posts.List(ctx, ctx.Principal, query, isPublished, author)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, posts)
}

func (a *API) createPost(ctx *Context) error {
	// decode body
	var input PostInput
	err := ctx.Decode(&input)
	if err != nil {
		return err
	}

	// create post
	post, err := a.blog.Posts.Create(ctx, ctx.Principal, input)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusCreated, post)
}

func (a *API) getPost(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// find post
	post, err := a.blog.Posts.Find(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, post)
}

func (a *API) updatePost(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var input PostInput
	err = ctx.Decode(&input)
	if err != nil {
		return err
	}

	// update post
	post, err := a.blog.Posts.Update(ctx, ctx.Principal, id, input)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, post)
}

func (a *API) deletePost(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// delete post
	err = a.blog.Posts.Delete(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, message{Message: "post deleted"})
}

func (a *API) setPostImage(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	return ctx.Image(func(filename, mediaType string, r io.Reader, size int64) error {
		// set image
		post, err := a.blog.Posts.SetImage(ctx, ctx.Principal, id, filename, mediaType, r, size)
		if err != nil {
			return err
		}

		return ctx.Write(http.StatusOK, post)
	})
}

func (a *API) listComments(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// list comments
	comments, err := a.blog.Comments.List(ctx, ctx.Principal, id, query)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, comments)
}

func (a *API) createComment(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var body struct {
		Text string `json:"text"`
	}
	err = ctx.Decode(&body)
	if err != nil {
		return err
	}

	// create comment
	comment, err := a.blog.Comments.Create(ctx, ctx.Principal, id, body.Text)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusCreated, comment)
}

func (a *API) countComments(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// get count
	count, err := a.blog.Posts.CommentCount(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, map[string]int64{
		"count": count,
	})
}

func (a *API) feed(ctx *Context) error {
	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// list comments
	comments, err := a.blog.Comments.Feed(ctx, ctx.Principal, query)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, comments)
}

func (a *API) getComment(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// find comment
	comment, err := a.blog.Comments.Find(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, comment)
}

func (a *API) listReplies(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// get query
	query, err := ctx.Query()
	if err != nil {
		return err
	}

	// list replies
	replies, err := a.blog.Comments.Replies(ctx, ctx.Principal, id, query)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, replies)
}

func (a *API) createReply(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var body struct {
		Text string `json:"text"`
	}
	err = ctx.Decode(&body)
	if err != nil {
		return err
	}

	// create reply
	reply, err := a.blog.Comments.Reply(ctx, ctx.Principal, id, body.Text)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusCreated, reply)
}

func (a *API) updateComment(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// decode body
	var body struct {
		Text string `json:"text"`
	}
	err = ctx.Decode(&body)
	if err != nil {
		return err
	}

	// update comment
	comment, err := a.blog.Comments.Update(ctx, ctx.Principal, id, body.Text)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, comment)
}

func (a *API) deleteComment(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// delete comment
	comment, err := a.blog.Comments.SoftDelete(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, comment)
}

func (a *API) purgeComment(ctx *Context) error {
	// get id
	id, err := ctx.ID("id")
	if err != nil {
		return err
	}

	// purge comment
	deleted, err := a.blog.Comments.Purge(ctx, ctx.Principal, id)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, map[string]int64{
		"deleted": deleted,
	})
}

func (a *API) uploadImage(ctx *Context) error {
	// check images
	if a.blog.Images == nil {
		return ErrNotFound.Wrap()
	}

	return ctx.Image(func(filename, mediaType string, r io.Reader, size int64) error {
		// upload image
		url, err := a.blog.Images.Upload(ctx, filename, mediaType, r, size)
		if err != nil {
			return err
		}

		return ctx.Write(http.StatusCreated, map[string]string{
			"url": url,
		})
	})
}

func (a *API) logError(ctx *Context) error {
	// decode body
	var body struct {
		Message string `json:"message"`
		Stack   string `json:"stack"`
	}
	err := ctx.Decode(&body)
	if err != nil {
		return err
	}

	// log error
	_, err = a.blog.Errors.Log(ctx, ctx.Request.Header.Get("Origin"), body.Message, body.Stack)
	if err != nil {
		return err
	}

	return ctx.Write(http.StatusOK, message{Message: "error logged"})
}
