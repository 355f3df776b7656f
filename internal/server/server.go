// Package server wires the web front end: middleware, routes and page handlers.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vibeweb/internal/api"
	"vibeweb/internal/config"
	"vibeweb/internal/featureflags"
	"vibeweb/internal/feed"
	"vibeweb/internal/middleware"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
	"vibeweb/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Package-level constructor hooks so tests can swap real dependencies.
var (
	newRedisClient = session.NewRedisClient
	newTemplates   = web.NewTemplates
)

// fiberprometheus registers its collectors globally, so one instance serves
// every Server in the process.
var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

func metricsMiddleware() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New("vibeweb")
	})
	return promMiddleware
}

// Deps are the already-initialized collaborators of a Server.
type Deps struct {
	API *api.Client
	// Redis is optional; without it sessions live in memory and form rate
	// limits are skipped.
	Redis *redis.Client
}

// Server holds all dependencies and provides handlers.
type Server struct {
	config    *config.Config
	api       *api.Client
	redis     *redis.Client
	sessions  *session.Manager
	feeds     *feed.Registry
	flags     *featureflags.Set
	templates *web.Templates
	prom      *fiberprometheus.FiberPrometheus
	app       *fiber.App

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
}

// NewServer creates a server, connecting to the backend and Redis as configured.
// An unreachable Redis degrades to in-memory sessions.
func NewServer(cfg *config.Config) (*Server, error) {
	client, err := api.New(api.Options{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.APITimeout(),
		RatePerSecond: cfg.APIRatePerSecond,
	})
	if err != nil {
		return nil, err
	}

	rdb, err := newRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		observability.Logger.Warn("redis unavailable, using in-memory sessions", "error", err)
		rdb = nil
	}

	return NewServerWithDeps(cfg, Deps{API: client, Redis: rdb})
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("server: backend client is required")
	}
	tmpl, err := newTemplates()
	if err != nil {
		return nil, err
	}

	var store session.Store = session.NewMemoryStore()
	if deps.Redis != nil {
		store = session.NewRedisStore(deps.Redis)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    cfg,
		api:       deps.API,
		redis:     deps.Redis,
		sessions:  session.NewManager(store, cfg.SessionTTL()),
		flags:     featureflags.Parse(cfg.FeatureFlags),
		templates: tmpl,
		prom:      metricsMiddleware(),
		feeds: feed.NewRegistry(deps.API, feed.Options{
			PageSize:     cfg.FeedPageSize,
			FetchTimeout: cfg.FeedFetchTimeout(),
		}, cfg.FeedIdle()),
		shutdownCtx: ctx,
		shutdownFn:  cancel,
	}
	s.app = s.newApp()
	return s, nil
}

// App returns the configured fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vibeweb",
		DisableStartupMessage: true,
		BodyLimit:             12 << 20,
		ErrorHandler:          s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(s.prom.Middleware)
	app.Use(helmet.New(helmet.Config{
		// Post images are served by the backend from another origin.
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(compress.New())
	app.Use(middleware.StructuredLogger())

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/health/live" || c.Path() == "/health/ready"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))
}

func (s *Server) formLimit(name string, limit int, window time.Duration) fiber.Handler {
	return middleware.RateLimit(middleware.RateLimitConfig{
		Client:   s.redis,
		Limit:    limit,
		Window:   window,
		Name:     name,
		Disabled: s.redis == nil || !s.config.IsProduction(),
	})
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	s.prom.RegisterAt(app, "/metrics")

	pages := app.Group("", middleware.Sessions(middleware.SessionConfig{
		Manager: s.sessions,
		TTL:     s.config.SessionTTL(),
		Secure:  s.config.CookieSecure,
	}))

	pages.Get("/", s.Home)
	pages.Get("/feed/select", s.SelectFeed)
	pages.Get("/feed/more", s.MoreFeed)

	pages.Post("/posts", s.formLimit("create_post", 5, time.Minute), s.CreatePost)
	// Specific /:id/:action routes before the generic /:id route
	pages.Post("/posts/:id/edit", s.EditPost)
	pages.Post("/posts/:id/delete", s.DeletePost)
	pages.Post("/posts/:id/comments", s.formLimit("create_comment", 10, time.Minute), s.CreateComment)
	pages.Get("/posts/:id", s.GetPost)
	pages.Post("/comments/:id/delete", s.DeleteComment)

	pages.Get("/profile/:nickname", s.Profile)
	pages.Post("/profile/:nickname/follow", s.formLimit("follow", 30, time.Minute), s.ToggleFollow)
	pages.Get("/explore", s.Explore)
	pages.Get("/my-page", s.MyPage)

	pages.Get("/login", s.LoginForm)
	pages.Post("/login", s.formLimit("login", 10, 5*time.Minute), s.Login)
	pages.Get("/signup", s.SignupForm)
	pages.Post("/signup", s.formLimit("signup", 3, 10*time.Minute), s.Signup)
	pages.Post("/logout", s.Logout)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the session store state. A missing Redis is a
// degraded but serving state.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	sessionsStatus := "memory"
	if s.redis != nil {
		sessionsStatus = "healthy"
	}
	status := fiber.StatusOK
	if err := s.sessions.Ping(ctx); err != nil {
		observability.Logger.WarnContext(ctx, "session store unreachable", "error", err)
		sessionsStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"sessions": sessionsStatus,
		},
		"feature_flags": s.flags.Settings(),
		"backend":      s.api.BaseURL(),
		"active_feeds": s.feeds.Len(),
		"time":         time.Now(),
	})
}

// Start runs the feed eviction loop and listens on the configured port.
func (s *Server) Start() error {
	go s.feeds.Run(s.shutdownCtx, time.Minute)

	observability.Logger.Info("server starting", "port", s.config.Port, "backend", s.api.BaseURL())
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		observability.Logger.Error("error shutting down HTTP server", "error", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.Logger.Error("error closing redis", "error", err)
		}
	}
	observability.Logger.Info("server shutdown complete")
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return RunWithQuit(cfg, quit)
}

// RunWithQuit behaves like Run but shuts down when quit receives.
func RunWithQuit(cfg *config.Config, quit <-chan os.Signal) error {
	srv, err := NewServer(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
