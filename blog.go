package quill

import (
	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
)

// Blog bundles the services of the application.
type Blog struct {
	Config   Config
	Store    *coal.Store
	Images   *blaze.Images
	Auth     *Authenticator
	Users    *Users
	Posts    *Posts
	Comments *Comments
	Errors   *ErrorLogs

	reporter func(error)
}

// NewBlog creates and returns a new blog. The config is completed with
// defaults and validated. Unexpected errors are passed to the reporter.
func NewBlog(config Config, store *coal.Store, images *blaze.Images, reporter func(error)) (*Blog, error) {
	// apply defaults
	err := config.Defaults()
	if err != nil {
		return nil, err
	}

	// validate
	err = config.Validate()
	if err != nil {
		return nil, err
	}

	// prepare searcher
	searcher := Searcher{Index: config.SearchIndex}

	// set placeholder
	if images != nil && images.Placeholder == "" {
		images.Placeholder = config.PlaceholderImage
	}

	// prepare notary
	notary := heat.NewNotary(config.Issuer, []byte(config.Secret))

	return &Blog{
		Config: config,
		Store:  store,
		Images: images,
		Auth:   NewAuthenticator(store, notary, config.AccessTTL, config.RefreshTTL),
		Users: &Users{
			store:    store,
			images:   images,
			searcher: searcher,
		},
		Posts: &Posts{
			store:    store,
			images:   images,
			searcher: searcher,
		},
		Comments: &Comments{
			store:    store,
			searcher: searcher,
		},
		Errors: &ErrorLogs{
			store:   store,
			origins: config.ErrorOrigins,
		},
		reporter: reporter,
	}, nil
}

// EnsureIndexes will ensure the indexes of all collections.
func (b *Blog) EnsureIndexes() error {
	return Indexes().Ensure(b.Store)
}

func (b *Blog) report(err error) {
	if b.reporter != nil {
		b.reporter(err)
	}
}
