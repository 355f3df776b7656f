package server

import (
	"errors"
	"strconv"
	"strings"

	"vibeweb/internal/api"
	"vibeweb/internal/featureflags"
	"vibeweb/internal/feed"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/render"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/gofiber/fiber/v2"
)

const (
	msgLoginFirst     = "Please log in first."
	msgSessionExpired = "Your session has expired. Please log in again."
	msgFeedFailed     = "Could not load posts. Please try again."
	msgGeneric        = "Something went wrong. Please try again."
)

// errorHandler renders every unhandled error as the HTML error page, or as
// JSON for clients that prefer it.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := msgGeneric

	var fe *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
		message = fe.Message
	case errors.As(err, &appErr):
		status = appErrorStatus(appErr)
		message = appErr.Message
	default:
		err = models.NewInternalError(err)
	}
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request error", "error", err, "path", c.Path())
	}

	if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
		return models.RespondWithError(c, status, err)
	}

	data := web.ErrorPageData{
		Page:    web.Page{Title: "Error", LoggedIn: middleware.CurrentSession(c).LoggedIn()},
		Status:  status,
		Message: message,
	}
	c.Status(status)
	c.Type("html", "utf-8")
	if rerr := s.templates.Render(c, "error", data); rerr != nil {
		return c.Status(status).SendString(message)
	}
	return nil
}

func appErrorStatus(e *models.AppError) int {
	switch e.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "UPSTREAM_ERROR":
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// upstreamError maps a backend failure onto an AppError for the error page.
func upstreamError(err error, what string, id any) error {
	switch {
	case errors.Is(err, api.ErrNotFound):
		return models.NewNotFoundError(what, id)
	case errors.Is(err, api.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, api.UserMessage(err, "You are not allowed to do that."))
	case errors.Is(err, api.ErrValidation):
		return models.NewValidationError(api.UserMessage(err, msgGeneric))
	}
	return models.NewUpstreamError(api.UserMessage(err, msgGeneric), err)
}

// renderPage writes a full page or a partial.
func (s *Server) renderPage(c *fiber.Ctx, name string, data any) error {
	c.Type("html", "utf-8")
	return s.templates.Render(c, name, data)
}

// page builds the common page data and consumes pending flashes.
func (s *Server) page(c *fiber.Ctx, title string) web.Page {
	sess := middleware.CurrentSession(c)
	flashes, err := s.sessions.Flashes(c.UserContext(), sess.ID)
	if err != nil {
		observability.Logger.WarnContext(c.UserContext(), "failed to read flashes", "error", err)
	}
	return web.Page{Title: title, LoggedIn: sess.LoggedIn(), Flashes: flashes}
}

func (s *Server) flash(c *fiber.Ctx, kind, message string) {
	sess := middleware.CurrentSession(c)
	if err := s.sessions.AddFlash(c.UserContext(), sess.ID, kind, message); err != nil {
		observability.Logger.WarnContext(c.UserContext(), "failed to store flash", "error", err)
	}
}

// signOut drops the credential and the feed built with it.
func (s *Server) signOut(c *fiber.Ctx) {
	ctx := c.UserContext()
	sess := middleware.CurrentSession(c)
	if err := s.sessions.ClearToken(ctx, sess.ID); err != nil {
		observability.Logger.WarnContext(ctx, "failed to clear credential", "error", err)
	}
	s.feeds.Drop(sess.ID)
	middleware.SetCurrentSession(c, session.Session{ID: sess.ID})
}

// adoptSession switches the request and the browser cookie to sess.
func (s *Server) adoptSession(c *fiber.Ctx, sess session.Session) {
	middleware.SetSessionCookie(c, sess.ID, s.config.SessionTTL(), s.config.CookieSecure)
	middleware.SetCurrentSession(c, sess)
}

// requireLogin redirects to the login page when there is no credential.
func (s *Server) requireLogin(c *fiber.Ctx) (session.Session, bool) {
	sess := middleware.CurrentSession(c)
	if sess.LoggedIn() {
		return sess, true
	}
	s.flash(c, session.FlashInfo, msgLoginFirst)
	_ = c.Redirect("/login", fiber.StatusSeeOther)
	return sess, false
}

// handleUnauthorized clears a rejected credential and redirects to login.
// It reports whether err was an authorization failure.
func (s *Server) handleUnauthorized(c *fiber.Ctx, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) && !errors.Is(err, feed.ErrLoginRequired) {
		return false
	}
	s.signOut(c)
	msg := msgSessionExpired
	if errors.Is(err, feed.ErrLoginRequired) {
		msg = msgLoginFirst
	}
	s.flash(c, session.FlashInfo, msg)

	if isFetch(c) {
		c.Set("X-Redirect", "/login")
		_ = c.SendStatus(fiber.StatusUnauthorized)
		return true
	}
	_ = c.Redirect("/login", fiber.StatusSeeOther)
	return true
}

// isFetch reports whether the request came from the page script and wants a partial.
func isFetch(c *fiber.Ctx) bool {
	return c.Get("X-Requested-With") == "fetch"
}

func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + param)
	}
	return uint(id), nil
}

func (s *Server) markdownEnabled(c *fiber.Ctx) bool {
	return s.flags.Enabled(featureflags.MarkdownPosts, middleware.CurrentSession(c).ID)
}

func postViews(posts []models.Post, markdown bool, viewerID uint) []web.PostView {
	out := make([]web.PostView, len(posts))
	for i, p := range posts {
		out[i] = web.PostView{
			Post:  p,
			Body:  render.Content(p.Content, markdown),
			Owned: p.OwnedBy(viewerID),
		}
	}
	return out
}

func profilePostViews(posts []models.ProfilePost, markdown bool) []web.ProfilePostView {
	out := make([]web.ProfilePostView, len(posts))
	for i, p := range posts {
		out[i] = web.ProfilePostView{ProfilePost: p, Body: render.Content(p.Content, markdown)}
	}
	return out
}

// feedData renders posts from st; only posts[from:] when appending a page.
func (s *Server) feedData(c *fiber.Ctx, st feed.State, from int) web.FeedData {
	if from > len(st.Posts) {
		from = len(st.Posts)
	}
	data := web.FeedData{
		Kind:      st.Kind,
		Posts:     postViews(st.Posts[from:], s.markdownEnabled(c), 0),
		Total:     len(st.Posts),
		HasMore:   st.HasMore(),
		LoggedIn:  middleware.CurrentSession(c).LoggedIn(),
		Threshold: s.config.SentinelThreshold,
	}
	if st.Err != nil {
		data.Error = api.UserMessage(st.Err, msgFeedFailed)
	}
	return data
}

func formText(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.FormValue(key))
}
