package server

import (
	"errors"

	"vibeweb/internal/api"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/gofiber/fiber/v2"
)

// LoginForm shows the login form, or returns home when already signed in.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	if middleware.CurrentSession(c).LoggedIn() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return s.renderPage(c, "login", web.FormPageData{Page: s.page(c, "Log in")})
}

func (s *Server) renderForm(c *fiber.Ctx, name, title string, status int, data web.FormPageData) error {
	data.Page = s.page(c, title)
	c.Status(status)
	return s.renderPage(c, name, data)
}

// authFailure maps a login or signup error to a status and form message.
func authFailure(err error, unauthorized string) (int, string) {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return fiber.StatusUnauthorized, unauthorized
	case errors.Is(err, api.ErrValidation):
		return fiber.StatusBadRequest, api.UserMessage(err, "Please check the form and try again.")
	case errors.Is(err, api.ErrRateLimited):
		return fiber.StatusTooManyRequests, "Too many attempts. Please wait a moment."
	}
	return fiber.StatusBadGateway, msgGeneric
}

// Login exchanges credentials for a token and stores it in the session.
func (s *Server) Login(c *fiber.Ctx) error {
	creds := models.Credentials{
		Email:    formText(c, "email"),
		Password: c.FormValue("password"),
	}
	form := web.FormPageData{Email: creds.Email}
	if creds.Email == "" || creds.Password == "" {
		form.Error = "Email and password are required."
		return s.renderForm(c, "login", "Log in", fiber.StatusBadRequest, form)
	}

	ctx := c.UserContext()
	token, err := s.api.Login(ctx, creds)
	if err != nil {
		status, msg := authFailure(err, "Invalid email or password.")
		if status >= fiber.StatusInternalServerError {
			observability.Logger.ErrorContext(ctx, "login failed", "error", err)
		}
		form.Error = msg
		return s.renderForm(c, "login", "Log in", status, form)
	}

	prev := middleware.CurrentSession(c)
	sess, err := s.sessions.Rotate(ctx, prev.ID, token)
	if err != nil {
		observability.Logger.ErrorContext(ctx, "failed to store credential", "error", err)
		form.Error = msgGeneric
		return s.renderForm(c, "login", "Log in", fiber.StatusInternalServerError, form)
	}
	// A feed built anonymously must not survive the login.
	s.feeds.Drop(prev.ID)
	s.adoptSession(c, sess)

	s.flash(c, session.FlashSuccess, "Welcome back!")
	return c.Redirect("/", fiber.StatusSeeOther)
}

// SignupForm shows the signup form.
func (s *Server) SignupForm(c *fiber.Ctx) error {
	if middleware.CurrentSession(c).LoggedIn() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return s.renderPage(c, "signup", web.FormPageData{Page: s.page(c, "Sign up")})
}

// Signup registers an account and sends the user to the login form.
func (s *Server) Signup(c *fiber.Ctx) error {
	req := models.SignupRequest{
		Email:    formText(c, "email"),
		Password: c.FormValue("password"),
		Nickname: formText(c, "nickname"),
	}
	form := web.FormPageData{Email: req.Email, Nickname: req.Nickname}
	if req.Email == "" || req.Password == "" || req.Nickname == "" {
		form.Error = "All fields are required."
		return s.renderForm(c, "signup", "Sign up", fiber.StatusBadRequest, form)
	}

	if err := s.api.Signup(c.UserContext(), req); err != nil {
		status, msg := authFailure(err, "Could not create the account.")
		if status >= fiber.StatusInternalServerError {
			observability.Logger.ErrorContext(c.UserContext(), "signup failed", "error", err)
		}
		form.Error = msg
		return s.renderForm(c, "signup", "Sign up", status, form)
	}

	s.flash(c, session.FlashSuccess, "Account created. Please log in.")
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// Logout forgets the credential and moves the browser to a fresh anonymous
// session.
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	prev := middleware.CurrentSession(c)
	sess, err := s.sessions.Rotate(ctx, prev.ID, "")
	if err != nil {
		observability.Logger.WarnContext(ctx, "session rotation failed", "error", err)
		s.signOut(c)
	} else {
		s.feeds.Drop(prev.ID)
		s.adoptSession(c, sess)
	}
	s.flash(c, session.FlashInfo, "You have been logged out.")
	return c.Redirect("/", fiber.StatusSeeOther)
}
