package baas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/oglasnik/internal/model"
)

// authUser is the auth API's user object.
type authUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	} `json:"user_metadata"`
}

func (u authUser) model() model.User {
	phone := u.Phone
	if phone == "" {
		phone = u.UserMetadata.Phone
	}
	return model.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.UserMetadata.FullName,
		Phone:     phone,
		CreatedAt: u.CreatedAt,
	}
}

// tokenResponse is returned by sign-in and, when confirmation is off,
// by sign-up.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   int64     `json:"expires_at"`
	User        *authUser `json:"user"`
}

func (t tokenResponse) session() *model.Session {
	expires := time.Unix(t.ExpiresAt, 0)
	if t.ExpiresAt == 0 {
		expires = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	s := &model.Session{AccessToken: t.AccessToken, ExpiresAt: expires}
	if t.User != nil {
		s.User = t.User.model()
	}
	return s
}

// SignUp registers a new account. When the project requires email
// confirmation the returned session has no access token.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*model.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": name},
	}

	// The response is either a session or a bare user object.
	var resp struct {
		tokenResponse
		authUser
	}
	if err := c.do(ctx, request{
		method: http.MethodPost,
		url:    c.endpoint(nil, "auth", "v1", "signup"),
		body:   body,
	}, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		return resp.tokenResponse.session(), nil
	}
	return &model.Session{User: resp.authUser.model()}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	q := url.Values{"grant_type": {"password"}}
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		url:    c.endpoint(q, "auth", "v1", "token"),
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("sign-in response has no access token")
	}
	return resp.session(), nil
}

// SignOut revokes the session identified by token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		url:    c.endpoint(nil, "auth", "v1", "logout"),
		token:  token,
	}, nil)
}

// GetUser returns the user owning token.
func (c *Client) GetUser(ctx context.Context, token string) (*model.User, error) {
	var u authUser
	if err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.endpoint(nil, "auth", "v1", "user"),
		token:  token,
	}, &u); err != nil {
		return nil, err
	}
	m := u.model()
	return &m, nil
}

// ResetPasswordForEmail asks the auth service to mail a recovery link that
// lands on redirectTo. The service answers the same way whether or not
// the address is registered.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		url:    c.endpoint(q, "auth", "v1", "recover"),
		body:   map[string]string{"email": email},
	}, nil)
}

// adminPageSize is the page size used when scanning the user list.
const adminPageSize = 200

// AdminFindUserByEmail looks up a user with the service key. It returns
// (nil, nil) when no user has that address.
func (c *Client) AdminFindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if c.serviceKey == "" {
		return nil, ErrServiceKeyRequired
	}

	for page := 1; ; page++ {
		q := url.Values{
			"page":     {fmt.Sprint(page)},
			"per_page": {fmt.Sprint(adminPageSize)},
		}
		var resp struct {
			Users []authUser `json:"users"`
		}
		if err := c.do(ctx, request{
			method: http.MethodGet,
			url:    c.endpoint(q, "auth", "v1", "admin", "users"),
			key:    c.serviceKey,
		}, &resp); err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}

		for _, u := range resp.Users {
			if strings.EqualFold(u.Email, email) {
				m := u.model()
				return &m, nil
			}
		}
		if len(resp.Users) < adminPageSize {
			return nil, nil
		}
	}
}
