package middleware

import (
	"errors"
	"time"

	"vibeweb/internal/observability"
	"vibeweb/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the browser session cookie name.
const SessionCookie = "sid"

// SessionConfig configures Sessions.
type SessionConfig struct {
	Manager *session.Manager
	TTL     time.Duration
	Secure  bool
}

// Sessions loads the browser session into locals. A missing cookie, or an id
// the server never issued, gets a fresh session and cookie. A store failure
// degrades to an anonymous session rather than failing the request.
func Sessions(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sess, err := cfg.Manager.Load(ctx, c.Cookies(SessionCookie))
		switch {
		case errors.Is(err, session.ErrUnknownSession):
			sid, err := cfg.Manager.Issue(ctx)
			if err != nil {
				observability.Logger.WarnContext(ctx, "session issue failed", "error", err)
			}
			SetSessionCookie(c, sid, cfg.TTL, cfg.Secure)
			sess = session.Session{ID: sid}
		case err != nil:
			observability.Logger.WarnContext(ctx, "session load failed", "error", err)
			sess = session.Session{ID: sess.ID}
		}

		c.SetUserContext(observability.WithSessionID(ctx, sess.ID))
		c.Locals(LocalSession, sess)
		return c.Next()
	}
}

// SetSessionCookie points the browser at sid.
func SetSessionCookie(c *fiber.Ctx, sid string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CurrentSession returns the session stored by Sessions.
func CurrentSession(c *fiber.Ctx) session.Session {
	if s, ok := c.Locals(LocalSession).(session.Session); ok {
		return s
	}
	return session.Session{}
}

// SetCurrentSession replaces the session in locals after a login or logout.
func SetCurrentSession(c *fiber.Ctx, s session.Session) {
	c.Locals(LocalSession, s)
	c.SetUserContext(observability.WithSessionID(c.UserContext(), s.ID))
}
