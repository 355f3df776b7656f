package server

import (
	"errors"
	"net/url"
	"strings"

	"vibeweb/internal/api"
	"vibeweb/internal/featureflags"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/profile"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

func nicknameParam(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(c.Params("nickname"))
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", models.NewValidationError("Invalid nickname")
	}
	return raw, nil
}

func (s *Server) profileView(sess session.Session, nickname string) *profile.View {
	return profile.NewView(s.api, sess, nickname, profile.Options{
		Reconcile: s.flags.Enabled(featureflags.FollowReconcile, sess.ID),
	})
}

func (s *Server) renderProfile(c *fiber.Ctx, p models.Profile, viewer *models.User) error {
	sess := middleware.CurrentSession(c)
	own := viewer != nil && viewer.Nickname == p.Nickname
	return s.renderPage(c, "profile", web.ProfilePageData{
		Page:      s.page(c, "@"+p.Nickname),
		Profile:   p,
		Posts:     profilePostViews(p.Posts, s.markdownEnabled(c)),
		Own:       own,
		CanFollow: sess.LoggedIn() && !own,
	})
}

// Profile shows a user's public profile.
func (s *Server) Profile(c *fiber.Ctx) error {
	nickname, err := nicknameParam(c)
	if err != nil {
		return err
	}
	sess := middleware.CurrentSession(c)
	view := s.profileView(sess, nickname)

	var viewer *models.User
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		return view.Load(ctx)
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
		return upstreamError(err, "Profile", nickname)
	}
	return s.renderProfile(c, view.Snapshot(), viewer)
}

// ToggleFollow flips the follow relation and renders the resulting profile.
// A failed toggle renders the rolled back (or reconciled) state with an error.
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	nickname, err := nicknameParam(c)
	if err != nil {
		return err
	}
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}

	ctx := c.UserContext()
	view := s.profileView(sess, nickname)
	if err := view.Load(ctx); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		return upstreamError(err, "Profile", nickname)
	}

	if err := view.Toggle(ctx); err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		msg := "Could not update follow status."
		if errors.Is(err, profile.ErrBusy) {
			msg = "A follow update is already in progress."
		} else if errors.Is(err, api.ErrValidation) {
			msg = api.UserMessage(err, msg)
		}
		s.flash(c, session.FlashError, msg)
	}

	viewer, err := s.me(ctx, sess)
	if err != nil && s.handleUnauthorized(c, err) {
		return nil
	}
	return s.renderProfile(c, view.Snapshot(), viewer)
}

// Explore lists every user.
func (s *Server) Explore(c *fiber.Ctx) error {
	users, err := s.api.ListUsers(c.UserContext())
	if err != nil {
		return upstreamError(err, "Users", "list")
	}
	return s.renderPage(c, "explore", web.ExplorePageData{
		Page:  s.page(c, "Explore"),
		Users: users,
	})
}

// MyPage shows the signed-in user's account. A profile that fails to load is
// left out rather than failing the page.
func (s *Server) MyPage(c *fiber.Ctx) error {
	sess, ok := s.requireLogin(c)
	if !ok {
		return nil
	}
	ctx := c.UserContext()

	me, err := s.api.Me(ctx, sess.Token)
	if err != nil {
		if s.handleUnauthorized(c, err) {
			return nil
		}
		return upstreamError(err, "Account", "me")
	}

	data := web.MyPageData{Page: s.page(c, "My page"), User: *me}
	p, err := s.api.GetProfile(ctx, sess.Token, me.Nickname)
	switch {
	case err == nil:
		data.Profile = p
		data.Posts = profilePostViews(p.Posts, s.markdownEnabled(c))
	case s.handleUnauthorized(c, err):
		return nil
	default:
		observability.Logger.WarnContext(ctx, "could not load own profile", "error", err)
	}
	return s.renderPage(c, "mypage", data)
}
