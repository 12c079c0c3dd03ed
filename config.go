package quill

import (
	"time"

	"dario.cat/mergo"
	"github.com/256dpi/xo"
)

// Config configures the blog.
type Config struct {
	// The MongoDB connection URI including the default database.
	MongoURI string

	// The address the API server listens on.
	Addr string

	// The secret used to sign tokens, at least 16 bytes.
	Secret string

	// The issuer of tokens.
	Issuer string

	// The origins allowed to report client errors. If empty, any origin is
	// accepted.
	ErrorOrigins []string

	// The lifespan of access tokens.
	//
	// Default: 5m.
	AccessTTL time.Duration

	// The lifespan of refresh tokens.
	//
	// Default: 14 days.
	RefreshTTL time.Duration

	// The name of the refresh token cookie.
	//
	// Default: "refreshToken".
	RefreshCookie string

	// Whether cookies are only sent over TLS.
	SecureCookies bool

	// The default and maximum page sizes.
	//
	// Default: 10 and 100.
	DefaultLimit int64
	MaxLimit     int64

	// The Atlas search index used for free-text search. If empty, the
	// collection text indexes are used.
	SearchIndex string

	// The maximum size of uploaded images.
	//
	// Default: 10M.
	UploadLimit int64

	// The maximum size of JSON request bodies.
	//
	// Default: 1M.
	BodyLimit int64

	// The URL of the placeholder image.
	PlaceholderImage string

	// The S3 compatible object storage.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool
	MinioBaseURL   string
}

// Defaults will fill unset fields with their default values.
func (c *Config) Defaults() error {
	err := mergo.Merge(c, Config{
		Addr:             "0.0.0.0:8000",
		Issuer:           "quill",
		AccessTTL:        5 * time.Minute,
		RefreshTTL:       14 * 24 * time.Hour,
		RefreshCookie:    "refreshToken",
		DefaultLimit:     10,
		MaxLimit:         100,
		UploadLimit:      10 << 20,
		BodyLimit:        1 << 20,
		PlaceholderImage: "/images/placeholder.png",
		MinioBucket:      "quill",
	})
	if err != nil {
		return xo.W(err)
	}

	return nil
}

// Validate will check the configuration.
func (c *Config) Validate() error {
	// check secret
	if len(c.Secret) < 16 {
		return xo.F("secret must have at least 16 bytes")
	}

	// check limits
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return xo.F("invalid page limits")
	}

	return nil
}
