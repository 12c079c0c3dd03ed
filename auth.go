package quill

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/256dpi/xo"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
	"github.com/256dpi/quill/stick"
)

const (
	accessToken  = "access"
	refreshToken = "refresh"
)

// Principal is the authenticated user of a request.
type Principal struct {
	User *User
}

// ID returns the id of the authenticated user.
func (p *Principal) ID() coal.ID {
	if p == nil || p.User == nil {
		return coal.ID{}
	}

	return p.User.ID
}

// IsAdmin returns whether the authenticated user is an admin.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.User != nil && p.User.IsAdmin
}

// Authorize will return an error if the principal is missing or neither the
// owner nor an admin.
func Authorize(principal *Principal, owner coal.ID) error {
	// check principal
	if principal == nil || principal.User == nil {
		return ErrUnauthorized.Wrap()
	}

	// check owner
	if principal.IsAdmin() || (!owner.IsZero() && principal.User.ID == owner) {
		return nil
	}

	return ErrAccessDenied.Wrap()
}

// RequireAdmin will return an error if the principal is not an admin.
func RequireAdmin(principal *Principal) error {
	return Authorize(principal, coal.ID{})
}

// Tokens is a pair of issued tokens.
type Tokens struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// Authenticator issues and verifies the access and refresh tokens of users.
type Authenticator struct {
	store      *coal.Store
	notary     *heat.Notary
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthenticator creates and returns a new authenticator.
func NewAuthenticator(store *coal.Store, notary *heat.Notary, accessTTL, refreshTTL time.Duration) *Authenticator {
	return &Authenticator{
		store:      store,
		notary:     notary,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login will verify the credentials and issue a token pair.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Tokens, *User, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Authenticator.Login")
	defer span.End()

	// normalize email
	email = strings.ToLower(strings.TrimSpace(email))

	// validate
	err := stick.Validate(func(v *stick.Validator) {
		v.Value("email", email, stick.IsNotZero, stick.IsEmail)
		v.Value("password", password, stick.IsNotZero, stick.IsMinLen(8))
	})
	if err != nil {
		return nil, nil, err
	}

	// find user
	var user User
	found, err := a.store.C(UsersCollection).FindOne(ctx, &user, bson.M{
		"email": email,
	})
	if err != nil {
		return nil, nil, err
	} else if !found {
		return nil, nil, &Error{
			Status: http.StatusUnauthorized,
			Errors: map[string]string{"email": "incorrect email"},
		}
	}

	// check password
	err = heat.CheckPassword(user.Password, password)
	if heat.ErrPasswordMismatch.Is(err) {
		return nil, nil, &Error{
			Status: http.StatusUnauthorized,
			Errors: map[string]string{"password": "incorrect password"},
		}
	} else if err != nil {
		return nil, nil, err
	}

	// check ban
	if user.IsBanned {
		return nil, nil, ErrorFromStatus(http.StatusUnauthorized, "user is banned")
	}

	// issue tokens
	tokens, err := a.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return tokens, &user, nil
}

// Refresh will issue a new access token for a valid refresh token.
func (a *Authenticator) Refresh(ctx context.Context, token string) (string, time.Time, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Authenticator.Refresh")
	defer span.End()

	// check token
	if token == "" {
		return "", time.Time{}, ErrorFromStatus(http.StatusUnauthorized, "unable to refresh without refresh token")
	}

	// verify token
	_, subject, err := a.notary.Verify(refreshToken, token)
	if err != nil {
		return "", time.Time{}, ErrorFromStatus(http.StatusUnauthorized, "invalid refresh token")
	}

	// load user
	_, err = a.user(ctx, subject)
	if err != nil {
		return "", time.Time{}, err
	}

	// issue access token
	access, expiry, err := a.notary.Issue(accessToken, subject, a.accessTTL, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	return access, expiry, nil
}

// Verify will verify the token pair and return the principal. Both tokens
// must be valid and issued for the same user that still exists and is not
// banned.
func (a *Authenticator) Verify(ctx context.Context, access, refresh string) (*Principal, error) {
	// trace
	ctx, span := xo.Trace(ctx, "quill/Authenticator.Verify")
	defer span.End()

	// check tokens
	if access == "" || refresh == "" {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "both access token and refresh token are required")
	}

	// verify refresh token
	_, owner, err := a.notary.Verify(refreshToken, refresh)
	if err != nil {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "invalid refresh token")
	}

	// verify access token
	_, subject, err := a.notary.Verify(accessToken, access)
	if err != nil {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "invalid access token")
	}

	// check subjects
	if owner != subject {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "token mismatch")
	}

	// load user
	user, err := a.user(ctx, subject)
	if err != nil {
		return nil, err
	}

	return &Principal{User: user}, nil
}

func (a *Authenticator) issue(user coal.ID) (*Tokens, error) {
	// issue access token
	access, accessExpiry, err := a.notary.Issue(accessToken, user, a.accessTTL, nil)
	if err != nil {
		return nil, err
	}

	// issue refresh token
	refresh, refreshExpiry, err := a.notary.Issue(refreshToken, user, a.refreshTTL, nil)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refresh,
		RefreshExpiry: refreshExpiry,
	}, nil
}

func (a *Authenticator) user(ctx context.Context, id coal.ID) (*User, error) {
	// find user
	var user User
	found, err := a.store.C(UsersCollection).FindOne(ctx, &user, bson.M{
		"_id": id,
	})
	if err != nil {
		return nil, err
	}

	// check user
	if !found || user.IsBanned {
		return nil, ErrorFromStatus(http.StatusUnauthorized, "the user doesn't exist or is not allowed")
	}

	return &user, nil
}
