// Package demo is an in-memory stand-in for the social backend's REST API,
// seeded with fake content. It backs `feedctl demo-backend` and the
// end-to-end tests of the web server.
package demo

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"vibeweb/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Demo account present in every seeded backend.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password"
	DemoNickname = "demo"
)

// Options configures seeding and token issuance.
type Options struct {
	Users    int
	Posts    int
	Seed     int64
	Secret   string
	TokenTTL time.Duration
	// ImageBaseURL prefixes stored upload URLs; relative URLs when empty.
	ImageBaseURL string
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 8
	}
	if o.Posts < 0 {
		o.Posts = 0
	}
	if o.Secret == "" {
		o.Secret = "demo-secret"
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = 24 * time.Hour
	}
	return o
}

type user struct {
	models.User
	Password string
	Bio      *string
}

type upload struct {
	contentType string
	data        []byte
}

type failure struct {
	method string
	path   string
	status int
}

type hold struct {
	method  string
	path    string
	arrived chan struct{}
	release chan struct{}
}

// Backend holds all state behind a mutex.
type Backend struct {
	opts Options

	mu            sync.Mutex
	users         []*user
	posts         []*models.Post
	comments      map[uint][]*models.Comment
	follows       map[uint]map[uint]struct{}
	uploads       map[string]upload
	nextUserID    uint
	nextPostID    uint
	nextCommentID uint
	failures      []failure
	holds         []*hold
	requests      []string
}

// New creates a backend seeded with opts.Users users and opts.Posts posts.
func New(opts Options) *Backend {
	opts = opts.withDefaults()
	b := &Backend{
		opts:          opts,
		comments:      make(map[uint][]*models.Comment),
		follows:       make(map[uint]map[uint]struct{}),
		uploads:       make(map[string]upload),
		nextUserID:    1,
		nextPostID:    1,
		nextCommentID: 1,
	}
	b.seed()
	return b
}

func (b *Backend) seed() {
	faker := gofakeit.New(b.opts.Seed)

	b.addUser(DemoEmail, DemoPassword, DemoNickname, nil)
	for i := 1; i < b.opts.Users; i++ {
		bio := faker.Sentence(6)
		nick := strings.ToLower(faker.Username())
		if b.userByNickname(nick) != nil {
			nick = fmt.Sprintf("%s%d", nick, i)
		}
		b.addUser(faker.Email(), faker.Password(true, true, true, false, false, 12), nick, &bio)
	}

	start := time.Now().Add(-time.Duration(b.opts.Posts) * time.Hour)
	for i := 0; i < b.opts.Posts; i++ {
		author := b.users[faker.Number(0, len(b.users)-1)]
		post := &models.Post{
			ID:        b.nextPostID,
			Content:   faker.Sentence(faker.Number(4, 16)),
			AuthorID:  author.ID,
			Author:    models.Author{ID: author.ID, Nickname: author.Nickname},
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if faker.Number(0, 4) == 0 {
			post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID())
		}
		b.nextPostID++
		b.posts = append(b.posts, post)
	}

	// The demo account follows half of the others.
	demo := b.users[0]
	for _, u := range b.users[1:] {
		if u.ID%2 == 0 {
			b.follow(demo.ID, u.ID)
		}
	}
}

func (b *Backend) addUser(email, password, nickname string, bio *string) *user {
	u := &user{
		User:     models.User{ID: b.nextUserID, Email: email, Nickname: nickname},
		Password: password,
		Bio:      bio,
	}
	b.nextUserID++
	b.users = append(b.users, u)
	return u
}

// AddPost inserts a post by nickname and returns it.
func (b *Backend) AddPost(nickname, content string) models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()

	author := b.userByNickname(nickname)
	if author == nil {
		author = b.addUser(nickname+"@example.com", DemoPassword, nickname, nil)
	}
	post := &models.Post{
		ID:        b.nextPostID,
		Content:   content,
		AuthorID:  author.ID,
		Author:    models.Author{ID: author.ID, Nickname: author.Nickname},
		CreatedAt: time.Now(),
	}
	b.nextPostID++
	b.posts = append(b.posts, post)
	return *post
}

// FailNext makes the next request matching method and path prefix answer
// with status.
func (b *Backend) FailNext(method, pathPrefix string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{method: method, path: pathPrefix, status: status})
}

// HoldNext parks the next request matching method and path prefix until
// release is called. arrived is closed once that request is parked.
func (b *Backend) HoldNext(method, pathPrefix string) (arrived <-chan struct{}, release func()) {
	h := &hold{method: method, path: pathPrefix, arrived: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds = append(b.holds, h)
	b.mu.Unlock()

	var once sync.Once
	return h.arrived, func() { once.Do(func() { close(h.release) }) }
}

// Requests returns "METHOD /path?query" for every request served so far.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// Follows reports whether follower follows nickname.
func (b *Backend) Follows(follower, nickname string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, t := b.userByNickname(follower), b.userByNickname(nickname)
	if f == nil || t == nil {
		return false
	}
	_, ok := b.follows[f.ID][t.ID]
	return ok
}

// App builds the fiber application serving the REST API.
func (b *Backend) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vibeweb demo backend",
		DisableStartupMessage: true,
		BodyLimit:             16 << 20,
	})
	app.Use(b.recordAndFail)
	b.routes(app)
	return app
}

// Handler adapts App to net/http, e.g. for httptest.
func (b *Backend) Handler() http.Handler {
	return adaptor.FiberApp(b.App())
}

func (b *Backend) recordAndFail(c *fiber.Ctx) error {
	b.mu.Lock()
	entry := c.Method() + " " + c.Path()
	if q := string(c.Request().URI().QueryString()); q != "" {
		entry += "?" + q
	}
	b.requests = append(b.requests, entry)

	status := 0
	for i, f := range b.failures {
		if f.method == c.Method() && strings.HasPrefix(c.Path(), f.path) {
			status = f.status
			b.failures = append(b.failures[:i], b.failures[i+1:]...)
			break
		}
	}
	var parked *hold
	for i, h := range b.holds {
		if h.method == c.Method() && strings.HasPrefix(c.Path(), h.path) {
			parked = h
			b.holds = append(b.holds[:i], b.holds[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if parked != nil {
		close(parked.arrived)
		<-parked.release
	}

	if status != 0 {
		return respondError(c, status, http.StatusText(status))
	}
	return c.Next()
}

func respondError(c *fiber.Ctx, status int, message any) error {
	return c.Status(status).JSON(fiber.Map{"message": message, "statusCode": status})
}

func (b *Backend) userByNickname(nickname string) *user {
	for _, u := range b.users {
		if u.Nickname == nickname {
			return u
		}
	}
	return nil
}

func (b *Backend) userByID(id uint) *user {
	for _, u := range b.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (b *Backend) postByID(id uint) (*models.Post, int) {
	for i, p := range b.posts {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (b *Backend) follow(follower, followee uint) {
	if b.follows[follower] == nil {
		b.follows[follower] = make(map[uint]struct{})
	}
	b.follows[follower][followee] = struct{}{}
}

func (b *Backend) followerCount(id uint) int {
	n := 0
	for _, set := range b.follows {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}

// newestFirst returns the posts accepted by keep, newest first.
func (b *Backend) newestFirst(keep func(*models.Post) bool) []models.Post {
	out := make([]models.Post, 0, len(b.posts))
	for _, p := range b.posts {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func paginate(posts []models.Post, page, limit int) []models.Post {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(posts) {
		return []models.Post{}
	}
	end := start + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end]
}
