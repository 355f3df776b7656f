package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"vibeweb/internal/models"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	body, err := jsonBody(creds)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	var out models.LoginResponse
	if err := c.do(ctx, request{
		op:          "login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: %w: no access token in response", ErrUnexpected)
	}
	return out.AccessToken, nil
}

// Signup registers a new account. The backend does not log the user in.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return c.do(ctx, request{
		op:          "signup",
		method:      http.MethodPost,
		path:        "/auth/signup",
		body:        body,
		contentType: "application/json",
	}, nil)
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("me: %w", ErrUnauthorized)
	}
	var user models.User
	if err := c.do(ctx, request{
		op:     "me",
		method: http.MethodGet,
		path:   "/user/me",
		token:  token,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account, used by the explore page.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, request{
		op:     "list_users",
		method: http.MethodGet,
		path:   "/user",
	}, &users)
	return users, err
}

// GetProfile fetches a public profile; with a token the backend fills isFollowing.
func (c *Client) GetProfile(ctx context.Context, token, nickname string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, request{
		op:     "get_profile",
		method: http.MethodGet,
		path:   "/profiles/" + url.PathEscape(nickname),
		token:  token,
	}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Follow makes the caller follow nickname.
func (c *Client) Follow(ctx context.Context, token, nickname string) error {
	return c.do(ctx, request{
		op:     "follow",
		method: http.MethodPost,
		path:   "/profiles/" + url.PathEscape(nickname) + "/follow",
		token:  token,
	}, nil)
}

// Unfollow removes the follow relation to nickname.
func (c *Client) Unfollow(ctx context.Context, token, nickname string) error {
	return c.do(ctx, request{
		op:     "unfollow",
		method: http.MethodDelete,
		path:   "/profiles/" + url.PathEscape(nickname) + "/follow",
		token:  token,
	}, nil)
}
