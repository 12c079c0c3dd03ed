package quill

import (
	"context"
	"sync"
	"testing"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
)

var lungoStore = coal.MustOpen(nil, "test-quill", xo.Panic)

var mongoStore *coal.Store
var mongoOnce sync.Once

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func init() {
	heat.UnsafeFastHash()
}

func newBlog(store *coal.Store) *Blog {
	blog, err := NewBlog(Config{
		Secret: testSecret,
	}, store, &blaze.Images{
		Service: blaze.NewMemory("http://images.test"),
	}, xo.Panic)
	if err != nil {
		panic(err)
	}

	return blog
}

func withTester(t *testing.T, fn func(*testing.T, *Tester)) {
	tester := NewTester(newBlog(lungoStore))
	tester.Clean()
	fn(t, tester)
}

func withMongo(t *testing.T, fn func(*testing.T, *Tester)) {
	mongoOnce.Do(func() {
		store, err := coal.Connect("mongodb://0.0.0.0/test-quill?serverSelectionTimeoutMS=500", nil)
		if err == nil {
			mongoStore = store
		}
	})
	if mongoStore == nil {
		t.Skip("mongodb not available")
	}

	tester := NewTester(newBlog(mongoStore))
	tester.Clean()
	fn(t, tester)
}

func signup(t *testing.T, blog *Blog, name, email string) *Principal {
	user, err := blog.Users.Signup(context.Background(), name, email, "secret-password")
	if err != nil {
		t.Fatal(err)
	}

	return &Principal{User: user}
}

func promote(t *testing.T, blog *Blog, principal *Principal) *Principal {
	principal.User.IsAdmin = true
	_, err := blog.Store.C(UsersCollection).UpdateOne(context.Background(), bson.M{
		"_id": principal.User.ID,
	}, bson.M{
		"$set": bson.M{"is_admin": true},
	})
	if err != nil {
		t.Fatal(err)
	}

	return principal
}

func publishedPost(t *testing.T, blog *Blog, author *Principal, title string) *Post {
	post, err := blog.Posts.Create(context.Background(), author, postInput(
		title,
		"A summary of the post",
		"This text is long enough to be published on the blog without issues.",
		true,
	))
	if err != nil {
		t.Fatal(err)
	}

	return post
}

func str(s string) *string {
	return &s
}

func flag(b bool) *bool {
	return &b
}
