package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"vibeweb/internal/models"
)

// ListPosts fetches one page of the global feed. token may be empty.
func (c *Client) ListPosts(ctx context.Context, token string, page, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := c.do(ctx, request{
		op:     "list_posts",
		method: http.MethodGet,
		path:   "/posts",
		query:  pageQuery(page, limit),
		token:  token,
	}, &posts)
	return posts, err
}

// PersonalFeed fetches one page of the session-scoped feed.
func (c *Client) PersonalFeed(ctx context.Context, token string, page, limit int) ([]models.Post, error) {
	if token == "" {
		return nil, fmt.Errorf("personal_feed: %w", ErrUnauthorized)
	}
	var posts []models.Post
	err := c.do(ctx, request{
		op:     "personal_feed",
		method: http.MethodGet,
		path:   "/posts/feed",
		query:  pageQuery(page, limit),
		token:  token,
	}, &posts)
	return posts, err
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, request{
		op:     "get_post",
		method: http.MethodGet,
		path:   "/posts/" + strconv.FormatUint(uint64(id), 10),
	}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost uploads a new post as multipart form data. image may be nil.
func (c *Client) CreatePost(ctx context.Context, token, content string, image *models.ImageUpload) (*models.Post, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("content", content); err != nil {
		return nil, fmt.Errorf("create_post: %w", err)
	}
	if image != nil && len(image.Data) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, image.Filename))
		ct := image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create_post: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, fmt.Errorf("create_post: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("create_post: %w", err)
	}

	var post models.Post
	if err := c.do(ctx, request{
		op:          "create_post",
		method:      http.MethodPost,
		path:        "/posts",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost replaces the content of a post owned by the caller.
func (c *Client) UpdatePost(ctx context.Context, token string, id uint, content string) (*models.Post, error) {
	body, err := jsonBody(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("update_post: %w", err)
	}
	var post models.Post
	if err := c.do(ctx, request{
		op:          "update_post",
		method:      http.MethodPatch,
		path:        "/posts/" + strconv.FormatUint(uint64(id), 10),
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post owned by the caller.
func (c *Client) DeletePost(ctx context.Context, token string, id uint) error {
	return c.do(ctx, request{
		op:     "delete_post",
		method: http.MethodDelete,
		path:   "/posts/" + strconv.FormatUint(uint64(id), 10),
		token:  token,
	}, nil)
}

func postPath(id uint, suffix string) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + suffix
}
