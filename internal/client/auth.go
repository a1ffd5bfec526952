package client

import (
	"context"
	"net/http"

	"aura-board/internal/domain"
)

// AuthClient signs users in and out. Signing in stores the token on the
// shared Client, so every other call is authenticated.
type AuthClient struct {
	c *Client
}

// NewAuthClient creates an AuthClient on c.
func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// SignUp creates an account. It does not sign in.
func (a *AuthClient) SignUp(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := a.c.do(ctx, http.MethodPost, "/api/auth/register", signUpRequest{Email: email, Password: password, DisplayName: displayName}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// SignIn exchanges credentials for a session token and keeps it.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	var resp signInResponse
	if err := a.c.do(ctx, http.MethodPost, "/api/auth/login", signInRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	a.c.SetToken(resp.Token)
	return resp.User, nil
}

// SignOut forgets the session token. Tokens are stateless, so there is no
// server call.
func (a *AuthClient) SignOut() {
	a.c.SetToken("")
}

// CurrentUser returns the signed-in user, or nil when signed out or when the
// backend no longer accepts the token.
func (a *AuthClient) CurrentUser(ctx context.Context) (*domain.User, error) {
	if a.c.Token() == "" {
		return nil, nil
	}
	var user domain.User
	if err := a.c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		if IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
