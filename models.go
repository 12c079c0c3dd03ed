package quill

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/page"
	"github.com/256dpi/quill/stick"
)

// The collections used by the blog.
const (
	UsersCollection     = "users"
	PostsCollection     = "posts"
	CommentsCollection  = "comments"
	ErrorLogsCollection = "error_logs"
)

var sanitizer = bluemonday.UGCPolicy()

// User is a registered user.
type User struct {
	ID         coal.ID   `json:"_id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Email      string    `json:"email" bson:"email"`
	Password   string    `json:"-" bson:"password"`
	IsAdmin    bool      `json:"is_admin" bson:"is_admin"`
	IsBanned   bool      `json:"is_banned" bson:"is_banned"`
	Image      string    `json:"image" bson:"image"`
	SavedPosts []coal.ID `json:"saved_posts" bson:"saved_posts"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Position implements the page.Row interface.
func (u User) Position() page.Cursor {
	return page.Cursor{ID: u.ID, CreatedAt: u.CreatedAt}
}

// Validate will validate the user.
func (u *User) Validate() error {
	return stick.Validate(func(v *stick.Validator) {
		v.Value("name", u.Name, stick.IsNotZero, stick.IsMaxLen(50))
		v.Value("email", u.Email, stick.IsNotZero, stick.IsEmail)
		v.Value("image", u.Image, stick.IsURL)
	})
}

// UserSummary is the public part of a user attached to posts and comments.
type UserSummary struct {
	ID    coal.ID `json:"_id" bson:"_id"`
	Name  string  `json:"name" bson:"name"`
	Image string  `json:"image" bson:"image"`
}

var userSummary = bson.D{
	{Key: "name", Value: 1},
	{Key: "image", Value: 1},
}

// Post is a blog post.
type Post struct {
	ID           coal.ID   `json:"_id" bson:"_id"`
	Author       coal.ID   `json:"author" bson:"author"`
	Title        string    `json:"title" bson:"title"`
	Summary      string    `json:"summary" bson:"summary"`
	Text         string    `json:"text" bson:"text"`
	Image        string    `json:"image" bson:"image"`
	IsPublished  bool      `json:"is_published" bson:"is_published"`
	CommentCount int64     `json:"comment_count" bson:"comment_count"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Sanitize will trim the title and summary and remove unsafe markup from the
// text.
func (p *Post) Sanitize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Text = strings.TrimSpace(sanitizer.Sanitize(p.Text))
}

// Validate will validate the post. Drafts may be incomplete, published posts
// require a title, summary and text of reasonable length.
func (p *Post) Validate() error {
	return stick.Validate(func(v *stick.Validator) {
		// check lengths
		v.Value("title", p.Title, stick.IsMaxLen(80))
		v.Value("summary", p.Summary, stick.IsMaxLen(160))
		v.Value("image", p.Image, stick.IsURL)

		// check published
		if p.IsPublished {
			v.Value("title", p.Title, stick.IsMinLen(8))
			v.Value("summary", p.Summary, stick.IsMinLen(8))
			v.Value("text", p.Text, stick.IsMinLen(51))
		}
	})
}

// PostView is a post with its author attached.
type PostView struct {
	ID           coal.ID      `json:"_id" bson:"_id"`
	Author       *UserSummary `json:"author" bson:"author"`
	Title        string       `json:"title" bson:"title"`
	Summary      string       `json:"summary" bson:"summary"`
	Text         string       `json:"text" bson:"text"`
	Image        string       `json:"image" bson:"image"`
	IsPublished  bool         `json:"is_published" bson:"is_published"`
	CommentCount int64        `json:"comment_count" bson:"comment_count"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// Position implements the page.Row interface.
func (p PostView) Position() page.Cursor {
	return page.Cursor{ID: p.ID, CreatedAt: p.CreatedAt}
}

// PostSummary is the part of a post attached to comments in the feed.
type PostSummary struct {
	ID    coal.ID `json:"_id" bson:"_id"`
	Title string  `json:"title" bson:"title"`
}

var postSummary = bson.D{
	{Key: "title", Value: 1},
}

// Comment is a comment on a post or a reply to another comment. The parent
// pointer is authoritative, the list of child comments is a cache.
type Comment struct {
	ID        coal.ID   `json:"_id" bson:"_id"`
	Post      coal.ID   `json:"post" bson:"post"`
	User      *coal.ID  `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
	Parent    *coal.ID  `json:"parent_comment" bson:"parent_comment"`
	Comments  []coal.ID `json:"comments" bson:"comments"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Deleted returns whether the comment has been soft deleted.
func (c *Comment) Deleted() bool {
	return c.User == nil && c.Text == ""
}

// Validate will validate the comment.
func (c *Comment) Validate() error {
	return stick.Validate(func(v *stick.Validator) {
		v.Value("text", c.Text, stick.IsNotZero, stick.IsMaxLen(2000))
	})
}

// CommentView is a comment with its author and up to two levels of replies
// attached.
type CommentView struct {
	ID        coal.ID       `json:"_id" bson:"_id"`
	Post      coal.ID       `json:"post" bson:"post"`
	User      *UserSummary  `json:"user" bson:"user"`
	Text      string        `json:"text" bson:"text"`
	Parent    *coal.ID      `json:"parent_comment" bson:"parent_comment"`
	Comments  []coal.ID     `json:"comments" bson:"comments"`
	Replies   []CommentView `json:"replies" bson:"replies"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Position implements the page.Row interface.
func (c CommentView) Position() page.Cursor {
	return page.Cursor{ID: c.ID, CreatedAt: c.CreatedAt}
}

// FeedComment is a comment in the global feed with its author and post
// attached.
type FeedComment struct {
	ID        coal.ID      `json:"_id" bson:"_id"`
	Post      *PostSummary `json:"post" bson:"post"`
	User      *UserSummary `json:"user" bson:"user"`
	Text      string       `json:"text" bson:"text"`
	Parent    *coal.ID     `json:"parent_comment" bson:"parent_comment"`
	Comments  []coal.ID    `json:"comments" bson:"comments"`
	CreatedAt time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// Position implements the page.Row interface.
func (c FeedComment) Position() page.Cursor {
	return page.Cursor{ID: c.ID, CreatedAt: c.CreatedAt}
}

// ErrorLog is an error reported by a client.
type ErrorLog struct {
	ID        coal.ID   `json:"_id" bson:"_id"`
	Message   string    `json:"message" bson:"message"`
	Stack     string    `json:"stack" bson:"stack"`
	Origin    string    `json:"origin" bson:"origin"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Validate will validate the error log.
func (l *ErrorLog) Validate() error {
	return stick.Validate(func(v *stick.Validator) {
		v.Value("message", l.Message, stick.IsNotZero, stick.IsMaxLen(4000))
		v.Value("stack", l.Stack, stick.IsNotZero, stick.IsMaxLen(16000))
	})
}

// Indexes returns the indexes used by the blog.
func Indexes() *coal.Indexer {
	indexer := coal.NewIndexer()

	// users
	indexer.Add(UsersCollection, true, "email")
	indexer.Add(UsersCollection, false, "-createdAt", "_id")
	indexer.AddText(UsersCollection, "name", "email")

	// posts
	indexer.Add(PostsCollection, false, "-createdAt", "_id")
	indexer.Add(PostsCollection, false, "author", "-createdAt", "_id")
	indexer.AddText(PostsCollection, "title", "summary", "text")

	// comments
	indexer.Add(CommentsCollection, false, "-createdAt", "_id")
	indexer.Add(CommentsCollection, false, "post", "parent_comment", "-createdAt", "_id")
	indexer.Add(CommentsCollection, false, "parent_comment")
	indexer.AddText(CommentsCollection, "text")

	// error logs
	indexer.Add(ErrorLogsCollection, false, "-createdAt")

	return indexer
}
