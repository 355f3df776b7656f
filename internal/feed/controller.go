// Package feed implements the paginated, optimistically updated post feed
// shown on the home page.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
)

// DefaultPageSize is the number of posts requested per page.
const DefaultPageSize = 5

var (
	// ErrLoginRequired is returned when the personal feed is requested without a credential.
	ErrLoginRequired = errors.New("feed: personal feed requires a session")
	// ErrStale is returned when a fetch completed after a reset and was discarded.
	ErrStale = errors.New("feed: page belongs to a previous generation")
)

// PageSource fetches one page of a feed collection.
type PageSource interface {
	ListPosts(ctx context.Context, token string, page, limit int) ([]models.Post, error)
	PersonalFeed(ctx context.Context, token string, page, limit int) ([]models.Post, error)
}

// Status is the derived controller state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusExhausted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusExhausted:
		return "exhausted"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is a point-in-time copy of the controller.
type State struct {
	Kind      models.FeedKind
	Posts     []models.Post
	Cursor    int
	Exhausted bool
	InFlight  bool
	Status    Status
	// Err is the failure that ended pagination, if any.
	Err error
}

// HasMore reports whether another page may be requested.
func (s State) HasMore() bool {
	return !s.Exhausted
}

// Options tunes a Controller.
type Options struct {
	PageSize     int
	FetchTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	return o
}

// Controller owns one browser session's feed. All methods are safe for
// concurrent use; at most one page fetch is in flight at a time.
type Controller struct {
	src  PageSource
	sess session.Session
	opts Options

	mu        sync.Mutex
	kind      models.FeedKind
	posts     []models.Post
	seen      map[uint]struct{}
	cursor    int
	exhausted bool
	inFlight  bool
	lastErr   error
	gen       uint64
	cancel    context.CancelFunc
	mounted   bool
}

// New creates a controller for sess. The initial kind is personal with a
// credential and global without one.
func New(src PageSource, sess session.Session, opts Options) *Controller {
	kind := models.FeedGlobal
	if sess.LoggedIn() {
		kind = models.FeedPersonal
	}
	return &Controller{
		src:    src,
		sess:   sess,
		opts:   opts.withDefaults(),
		kind:   kind,
		seen:   make(map[uint]struct{}),
		cursor: 1,
	}
}

// Session returns the session the controller was built for.
func (c *Controller) Session() session.Session {
	return c.sess
}

// pending describes one issued fetch.
type pending struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	kind   models.FeedKind
	page   int
}

// Mount resets the feed to the session-derived kind and fetches page 1.
func (c *Controller) Mount(ctx context.Context) error {
	kind := models.FeedGlobal
	if c.sess.LoggedIn() {
		kind = models.FeedPersonal
	}

	c.mu.Lock()
	c.resetLocked(kind)
	c.mounted = true
	p := c.startLocked(ctx)
	c.mu.Unlock()

	return c.run(p)
}

// SelectFeed switches to kind with a full reset. Selecting the current kind
// of a mounted feed does nothing.
func (c *Controller) SelectFeed(ctx context.Context, kind models.FeedKind) error {
	if kind != models.FeedPersonal && kind != models.FeedGlobal {
		return fmt.Errorf("feed: unknown kind %q", kind)
	}
	if kind == models.FeedPersonal && !c.sess.LoggedIn() {
		return ErrLoginRequired
	}

	c.mu.Lock()
	if c.mounted && c.kind == kind {
		c.mu.Unlock()
		return nil
	}
	c.resetLocked(kind)
	c.mounted = true
	p := c.startLocked(ctx)
	c.mu.Unlock()

	return c.run(p)
}

// LoadNextPage fetches the page at the cursor and appends it. It returns nil
// without fetching while a fetch is in flight or the feed is exhausted.
func (c *Controller) LoadNextPage(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || c.exhausted {
		c.mu.Unlock()
		return nil
	}
	p := c.startLocked(ctx)
	c.mu.Unlock()

	return c.run(p)
}

// OnPostCreated inserts a freshly created post. On the personal feed it is
// prepended locally; on the global feed the controller switches to personal.
func (c *Controller) OnPostCreated(ctx context.Context, post models.Post) error {
	c.mu.Lock()
	if c.kind == models.FeedPersonal {
		if _, dup := c.seen[post.ID]; !dup {
			c.seen[post.ID] = struct{}{}
			c.posts = append([]models.Post{post}, c.posts...)
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.SelectFeed(ctx, models.FeedPersonal)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Kind:      c.kind,
		Posts:     append([]models.Post(nil), c.posts...),
		Cursor:    c.cursor,
		Exhausted: c.exhausted,
		InFlight:  c.inFlight,
		Err:       c.lastErr,
	}
	switch {
	case c.inFlight:
		st.Status = StatusLoading
	case c.lastErr != nil:
		st.Status = StatusError
	case c.exhausted:
		st.Status = StatusExhausted
	default:
		st.Status = StatusIdle
	}
	return st
}

// Close cancels any outstanding fetch and invalidates its result.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.inFlight = false
}

func (c *Controller) resetLocked(kind models.FeedKind) {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.kind = kind
	c.posts = nil
	c.seen = make(map[uint]struct{})
	c.cursor = 1
	c.exhausted = false
	c.inFlight = false
	c.lastErr = nil
}

func (c *Controller) startLocked(ctx context.Context) pending {
	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	c.inFlight = true
	c.cancel = cancel
	return pending{
		ctx:    fetchCtx,
		cancel: cancel,
		gen:    c.gen,
		kind:   c.kind,
		page:   c.cursor,
	}
}

func (c *Controller) fetch(p pending) ([]models.Post, error) {
	if p.kind == models.FeedPersonal {
		return c.src.PersonalFeed(p.ctx, c.sess.Token, p.page, c.opts.PageSize)
	}
	return c.src.ListPosts(p.ctx, c.sess.Token, p.page, c.opts.PageSize)
}

func (c *Controller) run(p pending) error {
	page, err := c.fetch(p)
	p.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.gen != c.gen {
		observability.FeedPageFetches.WithLabelValues(string(p.kind), observability.OutcomeStale).Inc()
		return ErrStale
	}
	c.inFlight = false
	c.cancel = nil

	if err != nil {
		c.exhausted = true
		c.lastErr = err
		observability.FeedPageFetches.WithLabelValues(string(p.kind), observability.OutcomeError).Inc()
		observability.Logger.WarnContext(p.ctx, "feed page fetch failed",
			"kind", p.kind, "page", p.page, "error", err)
		return fmt.Errorf("load %s page %d: %w", p.kind, p.page, err)
	}

	c.cursor++
	for _, post := range page {
		if _, dup := c.seen[post.ID]; dup {
			continue
		}
		c.seen[post.ID] = struct{}{}
		c.posts = append(c.posts, post)
	}

	outcome := observability.OutcomeFull
	if len(page) < c.opts.PageSize {
		c.exhausted = true
		outcome = observability.OutcomeShort
	}
	observability.FeedPageFetches.WithLabelValues(string(p.kind), outcome).Inc()
	return nil
}
