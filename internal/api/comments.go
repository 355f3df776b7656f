package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"vibeweb/internal/models"
)

// ListComments fetches the comments of a post, oldest first as the backend orders them.
func (c *Client) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := c.do(ctx, request{
		op:     "list_comments",
		method: http.MethodGet,
		path:   postPath(postID, "/comments"),
	}, &comments)
	return comments, err
}

// CreateComment adds a comment to a post.
func (c *Client) CreateComment(ctx context.Context, token string, postID uint, content string) (*models.Comment, error) {
	body, err := jsonBody(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("create_comment: %w", err)
	}
	var comment models.Comment
	if err := c.do(ctx, request{
		op:          "create_comment",
		method:      http.MethodPost,
		path:        postPath(postID, "/comments"),
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment written by the caller.
func (c *Client) DeleteComment(ctx context.Context, token string, commentID uint) error {
	return c.do(ctx, request{
		op:     "delete_comment",
		method: http.MethodDelete,
		path:   "/comments/" + strconv.FormatUint(uint64(commentID), 10),
		token:  token,
	}, nil)
}
