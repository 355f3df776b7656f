package server

import (
	"context"
	"errors"
	"fmt"

	"vibeweb/internal/api"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// me returns the signed-in user, or nil without a credential. Only an
// authorization failure is returned as an error; anything else degrades to nil.
func (s *Server) me(ctx context.Context, sess session.Session) (*models.User, error) {
	if !sess.LoggedIn() {
		return nil, nil
	}
	u, err := s.api.Me(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, err
		}
		observability.Logger.WarnContext(ctx, "could not load current user", "error", err)
		return nil, nil
	}
	return u, nil
}

// GetPost renders a post with its comments. The post, comments and current
// user are fetched in parallel.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sess := middleware.CurrentSession(c)

	var (
		post     *models.Post
		comments []models.Comment
		viewer   *models.User
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		var err error
		post, err = s.api.GetPost(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.api.ListComments(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		viewer, err = s.me(ctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		return upstreamError(err, "Post", id)
	}

	var viewerID uint
	if viewer != nil {
		viewerID = viewer.ID
	}
	views := postViews([]models.Post{*post}, s.markdownEnabled(c), viewerID)
	commentViews := make([]web.CommentView, len(comments))
	for i, cm := range comments {
		commentViews[i] = web.CommentView{Comment: cm, Owned: cm.OwnedBy(viewerID)}
	}

	return s.renderPage(c, "post", web.PostPageData{
		Page:     s.page(c, "Post"),
		Post:     views[0],
		Comments: commentViews,
	})
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d", id)
}

// EditPost replaces the post content.
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	content := formText(c, "content")
	if content == "" {
		s.flash(c, session.FlashError, "A post cannot be empty.")
		return c.Redirect(postURL(id), fiber.StatusSeeOther)
	}

	if _, err := s.api.UpdatePost(c.UserContext(), sess.Token, id, content); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		s.flash(c, session.FlashError, api.UserMessage(err, "Could not update the post."))
		return c.Redirect(postURL(id), fiber.StatusSeeOther)
	}
	s.flash(c, session.FlashSuccess, "Post updated.")
	return c.Redirect(postURL(id), fiber.StatusSeeOther)
}

// DeletePost removes the post and returns to the feed.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	if err := s.api.DeletePost(c.UserContext(), sess.Token, id); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		s.flash(c, session.FlashError, api.UserMessage(err, "Could not delete the post."))
		return c.Redirect(postURL(id), fiber.StatusSeeOther)
	}
	s.flash(c, session.FlashSuccess, "Post deleted.")
	return c.Redirect("/", fiber.StatusSeeOther)
}

// CreateComment adds a comment to a post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	content := formText(c, "content")
	if content == "" {
		s.flash(c, session.FlashError, "A comment cannot be empty.")
		return c.Redirect(postURL(id), fiber.StatusSeeOther)
	}

	cm, err := s.api.CreateComment(c.UserContext(), sess.Token, id, content)
	if err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		s.flash(c, session.FlashError, api.UserMessage(err, "Could not add your comment."))
		return c.Redirect(postURL(id), fiber.StatusSeeOther)
	}
	return c.Redirect(fmt.Sprintf("%s#comment-%d", postURL(id), cm.ID), fiber.StatusSeeOther)
}

// DeleteComment removes a comment and returns to its post when known.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	back := "/"
	if postID := c.QueryInt("post"); postID > 0 {
		back = postURL(uint(postID))
	}

	if err := s.api.DeleteComment(c.UserContext(), sess.Token, id); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		s.flash(c, session.FlashError, api.UserMessage(err, "Could not delete the comment."))
		return c.Redirect(back, fiber.StatusSeeOther)
	}
	s.flash(c, session.FlashSuccess, "Comment deleted.")
	return c.Redirect(back, fiber.StatusSeeOther)
}
