package quill

import (
	"context"
	"fmt"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"
)

const loremIpsum = "<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.</p>"

type seedUser struct {
	name     string
	email    string
	password string
	admin    bool
	banned   bool
}

var seedUsers = []seedUser{
	{"Mike stevens", "mikestevens@mail.com", "mikepassword", false, true},
	{"June johnson", "junejohnson@mail.com", "junepassword", false, false},
	{"Leah o'brien", "leahobrien@mail.com", "leahpassword", false, false},
	{"Carl smith", "carlsm1992@mail.com", "carlpassword", false, false},
	{"Thom.", "thom@mail.com", "thompassword", false, false},
	{"Gabriel miranda", "gabyam@mail.com", "gabypassword", true, false},
}

// Seed will replace all users, posts and comments with sample data for local
// development.
func (b *Blog) Seed(ctx context.Context) error {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Blog.Seed")
	defer span.End()

	// clean collections
	for _, coll := range []string{UsersCollection, PostsCollection, CommentsCollection} {
		_, err := b.Store.C(coll).DeleteMany(ctx, bson.M{})
		if err != nil {
			return err
		}
	}

	// create users
	var users []*Principal
	for _, item := range seedUsers {
		user, err := b.Users.Signup(ctx, item.name, item.email, item.password)
		if err != nil {
			return err
		}

		// set flags
		if item.admin || item.banned {
			_, err = b.Store.C(UsersCollection).UpdateOne(ctx, bson.M{
				"_id": user.ID,
			}, bson.M{
				"$set": bson.M{
					"is_admin":  item.admin,
					"is_banned": item.banned,
				},
			})
			if err != nil {
				return err
			}
			user.IsAdmin = item.admin
			user.IsBanned = item.banned
		}

		users = append(users, &Principal{User: user})
	}

	// get admin
	admin := users[5]

	// create posts
	var posts []*Post
	for i := 0; i < 20; i++ {
		post, err := b.Posts.Create(ctx, admin, postInput(
			fmt.Sprintf("Pagination test number %d", i+1),
			"This is just a sample post to test the pagination feature",
			loremIpsum,
			true,
		))
		if err != nil {
			return err
		}
		posts = append(posts, post)
	}

	// create drafts
	_, err := b.Posts.Create(ctx, admin, postInput(
		"How i made this blog",
		"this blog app took me months, i can explain it...",
		"<p>This is only a sample content that i should fill later</p>",
		false,
	))
	if err != nil {
		return err
	}

	// create threads
	for _, post := range posts[:3] {
		root, err := b.Comments.Create(ctx, users[1], post.ID, "Great post, thanks for sharing!")
		if err != nil {
			return err
		}
		reply, err := b.Comments.Reply(ctx, users[2], root.ID, "I agree, the examples were really helpful.")
		if err != nil {
			return err
		}
		_, err = b.Comments.Reply(ctx, users[3], reply.ID, "Same here, looking forward to the next one.")
		if err != nil {
			return err
		}
		_, err = b.Comments.Create(ctx, users[4], post.ID, "Nice.")
		if err != nil {
			return err
		}
	}

	return nil
}

func postInput(title, summary, text string, published bool) PostInput {
	return PostInput{
		Title:       &title,
		Summary:     &summary,
		Text:        &text,
		IsPublished: &published,
	}
}

