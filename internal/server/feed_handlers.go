package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"vibeweb/internal/api"
	"vibeweb/internal/feed"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/gofiber/fiber/v2"
)

const maxImageBytes = 10 << 20

// Home mounts a fresh feed for the browser session and renders page 1. The
// redirect that follows a new post names it in "posted"; the live feed that
// already holds that post is rendered as is.
func (s *Server) Home(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	if posted := c.QueryInt("posted"); posted > 0 {
		if ctrl, ok := s.feeds.Get(sess); ok {
			if st := ctrl.Snapshot(); holdsPost(st, uint(posted)) {
				return s.renderHome(c, st)
			}
		}
	}

	ctrl, err := s.feeds.Mount(c.UserContext(), sess)
	if err != nil && s.handleUnauthorized(c, err) {
		return nil
	}
	return s.renderHome(c, ctrl.Snapshot())
}

func holdsPost(st feed.State, id uint) bool {
	for _, p := range st.Posts {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) renderHome(c *fiber.Ctx, st feed.State) error {
	return s.renderPage(c, "home", web.HomePageData{
		Page: s.page(c, ""),
		Feed: s.feedData(c, st, 0),
	})
}

// currentFeed returns the session's controller, mounting one when it was
// evicted or built for another credential.
func (s *Server) currentFeed(c *fiber.Ctx) (*feed.Controller, error) {
	sess := middleware.CurrentSession(c)
	if ctrl, ok := s.feeds.Get(sess); ok {
		return ctrl, nil
	}
	return s.feeds.Mount(c.UserContext(), sess)
}

// SelectFeed switches the feed kind and renders the feed partial.
func (s *Server) SelectFeed(c *fiber.Ctx) error {
	kind, ok := models.ParseFeedKind(c.Query("kind"))
	if !ok {
		return models.NewValidationError("Unknown feed " + c.Query("kind"))
	}

	ctrl, err := s.currentFeed(c)
	if err != nil && s.handleUnauthorized(c, err) {
		return nil
	}
	if err := ctrl.SelectFeed(c.UserContext(), kind); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		if errors.Is(err, feed.ErrStale) {
			observability.Logger.DebugContext(c.UserContext(), "feed switch superseded", "kind", kind)
		}
	}

	st := ctrl.Snapshot()
	if isFetch(c) {
		return s.renderPage(c, "feed", s.feedData(c, st, 0))
	}
	return s.renderHome(c, st)
}

// MoreFeed loads the next page and renders only the appended posts plus the
// next sentinel.
func (s *Server) MoreFeed(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	ctrl, ok := s.feeds.Get(sess)
	if !ok {
		if isFetch(c) {
			return s.renderPage(c, "feed-page", web.FeedData{Error: "This feed has expired. Reload the page to continue."})
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	before := len(ctrl.Snapshot().Posts)
	err := ctrl.LoadNextPage(c.UserContext())
	if err != nil && s.handleUnauthorized(c, err) {
		return nil
	}

	st := ctrl.Snapshot()
	if !isFetch(c) {
		return s.renderHome(c, st)
	}
	if errors.Is(err, feed.ErrStale) {
		// A reset replaced the list; the page script reloads the feed.
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err == nil && st.InFlight && len(st.Posts) == before {
		// Another tab of this session holds the fetch.
		return c.SendStatus(fiber.StatusNoContent)
	}
	return s.renderPage(c, "feed-page", s.feedData(c, st, before))
}

// CreatePost forwards the new post to the backend, inserts it into the feed
// and redirects home so a reload does not post again.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	content := formText(c, "content")
	image, err := readImage(c)
	if err != nil {
		s.flash(c, session.FlashError, err.Error())
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	if content == "" && image == nil {
		s.flash(c, session.FlashError, "Write something or attach an image.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	post, err := s.api.CreatePost(c.UserContext(), sess.Token, content, image)
	if err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		observability.Logger.WarnContext(c.UserContext(), "create post failed", "error", err)
		s.flash(c, session.FlashError, api.UserMessage(err, "Could not publish your post."))
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	if ctrl, mounted := s.feeds.Get(sess); mounted {
		err = ctrl.OnPostCreated(c.UserContext(), *post)
	} else {
		_, err = s.feeds.Mount(c.UserContext(), sess)
	}
	if err != nil && s.handleUnauthorized(c, err) {
		return nil
	}

	s.flash(c, session.FlashSuccess, "Post created.")
	return c.Redirect(fmt.Sprintf("/?posted=%d", post.ID), fiber.StatusSeeOther)
}

type imageError string

func (e imageError) Error() string { return string(e) }

// readImage returns the optional "image" upload.
func readImage(c *fiber.Ctx) (*models.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil || fh.Size == 0 {
		return nil, nil
	}
	if fh.Size > maxImageBytes {
		return nil, imageError("Images must be 10 MB or smaller.")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, imageError("Could not read the attached image.")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return nil, imageError("Could not read the attached image.")
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &models.ImageUpload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}
