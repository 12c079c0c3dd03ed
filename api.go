package quill

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/256dpi/oauth2/v2"
	"github.com/256dpi/serve"
	"github.com/256dpi/xo"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
	"github.com/256dpi/quill/stick"
)

// Context is the context of an API request.
type Context struct {
	context.Context

	// The underlying request and response writer.
	Request *http.Request
	Writer  http.ResponseWriter

	// The authenticated user, if any.
	Principal *Principal

	api *API
}

// Handler handles an API request.
type Handler func(ctx *Context) error

type endpoint struct {
	private bool
	limit   int64
	handler Handler
}

// API serves the blog over HTTP.
type API struct {
	blog *Blog
	mux  *http.ServeMux
}

// NewAPI creates and returns the API of the provided blog.
func NewAPI(blog *Blog) *API {
	// prepare api
	a := &API{
		blog: blog,
		mux:  http.NewServeMux(),
	}

	// get limits
	body := blog.Config.BodyLimit
	upload := blog.Config.UploadLimit

	// auth
	a.handle("POST /auth/signup", false, body, a.signup)
	a.handle("POST /auth/login", false, body, a.login)
	a.handle("POST /auth/refresh", false, body, a.refresh)
	a.handle("POST /auth/logout", false, body, a.logout)

	// users
	a.handle("GET /users", false, body, a.listUsers)
	a.handle("GET /users/{id}", false, body, a.getUser)
	a.handle("PATCH /users/{id}", true, body, a.updateUser)
	a.handle("PATCH /users/{id}/flags", true, body, a.setUserFlags)
	a.handle("DELETE /users/{id}", true, body, a.deleteUser)
	a.handle("POST /users/{id}/image", true, upload, a.setUserImage)
	a.handle("GET /users/{id}/posts", false, body, a.listUserPosts)
	a.handle("GET /users/{id}/saved", true, body, a.listSavedPosts)
	a.handle("PUT /users/{id}/saved/{post}", true, body, a.savePost)
	a.handle("DELETE /users/{id}/saved/{post}", true, body, a.unsavePost)

	// posts
	a.handle("GET /posts", false, body, a.listPosts)
	a.handle("POST /posts", true, body, a.createPost)
	a.handle("GET /posts/{id}", false, body, a.getPost)
	a.handle("PATCH /posts/{id}", true, body, a.updatePost)
	a.handle("DELETE /posts/{id}", true, body, a.deletePost)
	a.handle("POST /posts/{id}/image", true, upload, a.setPostImage)
	a.handle("GET /posts/{id}/comments", false, body, a.listComments)
	a.handle("POST /posts/{id}/comments", true, body, a.createComment)
	a.handle("GET /posts/{id}/comments/count", false, body, a.countComments)

	// comments
	a.handle("GET /comments", false, body, a.feed)
	a.handle("GET /comments/{id}", false, body, a.getComment)
	a.handle("GET /comments/{id}/replies", false, body, a.listReplies)
	a.handle("POST /comments/{id}/replies", true, body, a.createReply)
	a.handle("PATCH /comments/{id}", true, body, a.updateComment)
	a.handle("DELETE /comments/{id}", true, body, a.deleteComment)
	a.handle("DELETE /comments/{id}/tree", true, body, a.purgeComment)

	// other
	a.handle("POST /images", true, upload, a.uploadImage)
	a.handle("POST /error/log", false, body, a.logError)

	return a
}

// NewHandler returns the composed handler that serves the API with request
// logging to the provided writer.
func NewHandler(blog *Blog, logger io.Writer) http.Handler {
	return serve.Compose(
		NewRequestLogger(logger),
		xo.RootHandler(),
		NewAPI(blog),
	)
}

// ServeHTTP implements the http.Handler interface.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) handle(pattern string, private bool, limit int64, handler Handler) {
	// prepare endpoint
	e := endpoint{
		private: private,
		limit:   limit,
		handler: handler,
	}

	// add handler
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		a.process(w, r, e)
	})
}

func (a *API) process(w http.ResponseWriter, r *http.Request, e endpoint) {
	// trace
	c, span := xo.Trace(r.Context(), r.Method+" "+r.Pattern)
	defer span.End()

	// prepare context
	ctx := &Context{
		Context: c,
		Request: r,
		Writer:  w,
		api:     a,
	}

	// run handler
	err := xo.Catch(func() error {
		// limit body
		serve.LimitBody(w, r, e.limit)

		// authenticate
		principal, err := a.authenticate(ctx)
		if err != nil && e.private {
			return err
		}
		ctx.Principal = principal

		return e.handler(ctx)
	})
	if err == nil {
		return
	}

	// check limit error
	if strings.HasSuffix(err.Error(), serve.ErrBodyLimitExceeded.Error()) {
		err = ErrorFromStatus(http.StatusRequestEntityTooLarge, "")
	}

	// classify error
	anError, unexpected := Classify(err)
	if unexpected {
		a.blog.report(err)
	}

	// write error
	_ = ctx.Write(anError.Status, anError)
}

func (a *API) authenticate(ctx *Context) (*Principal, error) {
	// get access token
	access, err := oauth2.ParseBearerToken(ctx.Request)
	if err != nil {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "both access token and refresh token are required")
	}

	// get refresh token
	var refresh string
	cookie, err := ctx.Request.Cookie(a.blog.Config.RefreshCookie)
	if err == nil {
		refresh = cookie.Value
	}

	return a.blog.Auth.Verify(ctx, access, refresh)
}

// Decode will decode the JSON request body into the provided value.
func (c *Context) Decode(value interface{}) error {
	err := json.NewDecoder(c.Request.Body).Decode(value)
	if errors.Is(err, io.EOF) {
		return xo.SF("missing body")
	} else if err != nil && strings.HasSuffix(err.Error(), serve.ErrBodyLimitExceeded.Error()) {
		return err
	} else if err != nil {
		return xo.SF("invalid body")
	}

	return nil
}

// Write will write the value as JSON with the provided status.
func (c *Context) Write(status int, value interface{}) error {
	c.Writer.Header().Set("Content-Type", "application/json")
	c.Writer.WriteHeader(status)
	return json.NewEncoder(c.Writer).Encode(value)
}

// ID returns the object id of the named path parameter.
func (c *Context) ID(name string) (coal.ID, error) {
	id, err := coal.FromHex(c.Request.PathValue(name))
	if err != nil {
		return coal.ID{}, stick.Invalid(name, "invalid id")
	}

	return id, nil
}

// Query returns the requested page.
func (c *Context) Query() (page.Query, error) {
	config := c.api.blog.Config
	return page.ParseRequest(c.Request.URL.Query(), config.DefaultLimit, config.MaxLimit)
}

// Image will yield the uploaded image of a multipart request.
func (c *Context) Image(fn func(filename, mediaType string, r io.Reader, size int64) error) error {
	// parse form
	err := c.Request.ParseMultipartForm(1 << 20)
	if err != nil && strings.HasSuffix(err.Error(), serve.ErrBodyLimitExceeded.Error()) {
		return err
	} else if err != nil {
		return stick.Invalid("image", "missing image")
	}

	// get file
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		return stick.Invalid("image", "missing image")
	}
	defer file.Close()

	return fn(header.Filename, header.Header.Get("Content-Type"), file, header.Size)
}

func (c *Context) setRefreshCookie(token string, expiry time.Time) {
	config := c.api.blog.Config

	// prepare same site mode
	sameSite := http.SameSiteLaxMode
	if config.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}

	// set cookie
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     config.RefreshCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   config.SecureCookies,
		SameSite: sameSite,
	})
}
