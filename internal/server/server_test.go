package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"vibeweb/internal/api"
	"vibeweb/internal/config"
	"vibeweb/internal/demo"
	"vibeweb/internal/middleware"
	"vibeweb/internal/models"
	"vibeweb/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness drives one browser session against a server backed by the demo API.
type harness struct {
	t       *testing.T
	backend *demo.Backend
	api     *api.Client
	srv     *Server
	sid     string
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Port:                    "0",
		Env:                     "test",
		APIBaseURL:              apiURL,
		APITimeoutSeconds:       5,
		FeedPageSize:            5,
		FeedFetchTimeoutSeconds: 5,
		FeedIdleMinutes:         30,
		SentinelThreshold:       0.5,
		SessionTTLHours:         24,
		FeatureFlags:            "follow_reconcile=on",
	}
}

func newHarness(t *testing.T, opts demo.Options, rdb *redis.Client) *harness {
	t.Helper()

	backend := demo.New(opts)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(api.Options{BaseURL: ts.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	srv, err := NewServerWithDeps(testConfig(ts.URL), Deps{API: client, Redis: rdb})
	require.NoError(t, err)

	return &harness{t: t, backend: backend, api: client, srv: srv}
}

func (h *harness) send(req *http.Request) *http.Response {
	h.t.Helper()
	if h.sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: h.sid})
	}
	resp, err := h.srv.App().Test(req, -1)
	require.NoError(h.t, err)
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			h.sid = c.Value
		}
	}
	return resp
}

func (h *harness) get(target string) *http.Response {
	return h.send(httptest.NewRequest(http.MethodGet, target, nil))
}

func (h *harness) fetch(target string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("X-Requested-With", "fetch")
	return h.send(req)
}

func (h *harness) postForm(target string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.send(req)
}

func (h *harness) postMultipart(target string, fields map[string]string) *http.Response {
	h.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, w.WriteField(k, v))
	}
	require.NoError(h.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.send(req)
}

func (h *harness) login() {
	h.t.Helper()
	h.get("/login")
	resp := h.postForm("/login", url.Values{"email": {demo.DemoEmail}, "password": {demo.DemoPassword}})
	require.Equal(h.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(h.t, "/", resp.Header.Get("Location"))
}

func (h *harness) token() string {
	h.t.Helper()
	sess, err := h.srv.sessions.Load(context.Background(), h.sid)
	if errors.Is(err, session.ErrUnknownSession) {
		return ""
	}
	require.NoError(h.t, err)
	return sess.Token
}

// stranger returns a seeded user the demo account does not follow.
func (h *harness) stranger() string {
	h.t.Helper()
	users, err := h.api.ListUsers(context.Background())
	require.NoError(h.t, err)
	for _, u := range users {
		if u.Nickname != demo.DemoNickname && !h.backend.Follows(demo.DemoNickname, u.Nickname) {
			return u.Nickname
		}
	}
	h.t.Fatal("no unfollowed user seeded")
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func countPosts(body string) int {
	return strings.Count(body, `<article class="post"`)
}

func TestHome_AnonymousGetsFirstGlobalPage(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)

	resp := h.get("/")
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, h.sid, "session cookie issued")
	assert.Equal(t, 5, countPosts(body))
	assert.Contains(t, body, `id="post-12"`)
	assert.Contains(t, body, `id="feed-sentinel"`)
	assert.NotContains(t, body, "kind=personal", "personal tab is hidden when logged out")
	assert.Contains(t, h.backend.Requests(), "GET /posts?limit=5&page=1")
}

func TestMoreFeed_AppendsPagesUntilExhausted(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.get("/")

	second := readBody(t, h.fetch("/feed/more"))
	assert.Equal(t, 5, countPosts(second))
	assert.Contains(t, second, `id="post-7"`)
	assert.NotContains(t, second, `id="post-12"`, "only the appended page is rendered")
	assert.Contains(t, second, `id="feed-sentinel"`)

	third := readBody(t, h.fetch("/feed/more"))
	assert.Equal(t, 2, countPosts(third))
	assert.Contains(t, third, "all caught up")
	assert.NotContains(t, third, `id="feed-sentinel"`)

	before := len(h.backend.Requests())
	after := readBody(t, h.fetch("/feed/more"))
	assert.Zero(t, countPosts(after))
	assert.Len(t, h.backend.Requests(), before, "an exhausted feed does not fetch")
}

func TestMoreFeed_FetchHeldByAnotherTab(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.get("/")

	arrived, release := h.backend.HoldNext(http.MethodGet, "/posts")
	t.Cleanup(release)

	type result struct {
		resp *http.Response
		err  error
	}
	first := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/feed/more", nil)
		req.Header.Set("X-Requested-With", "fetch")
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: h.sid})
		resp, err := h.srv.App().Test(req, -1)
		first <- result{resp, err}
	}()
	<-arrived

	resp := h.fetch("/feed/more")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	release()
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, 5, countPosts(readBody(t, r.resp)))
}

func TestMoreFeed_WithoutMountedFeed(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Posts: 3, Seed: 1}, nil)

	body := readBody(t, h.fetch("/feed/more"))
	assert.Contains(t, body, "expired")

	resp := h.get("/feed/more")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestMoreFeed_BackendFailureShowsError(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.get("/")

	h.backend.FailNext(http.MethodGet, "/posts", http.StatusInternalServerError)
	body := readBody(t, h.fetch("/feed/more"))
	assert.Contains(t, body, "toast-error")
	assert.NotContains(t, body, `id="feed-sentinel"`, "a failed fetch stops pagination")
}

func TestLogin_StoresCredentialAndSwitchesToPersonal(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.login()
	assert.NotEmpty(t, h.token())

	body := readBody(t, h.get("/"))
	assert.Contains(t, body, "Welcome back!")
	assert.Contains(t, body, `class="active">Following`)
	assert.Contains(t, h.backend.Requests(), "GET /posts/feed?limit=5&page=1")
}

func TestLogin_RotatesSessionID(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)

	chosen := session.NewID()
	h.sid = chosen
	h.get("/")
	require.NotEqual(t, chosen, h.sid, "an id the server never issued is replaced")

	planted := h.sid
	h.login()
	require.NotEqual(t, planted, h.sid)
	assert.NotEmpty(t, h.token())

	// A second browser still holding the pre-login id.
	other := &harness{t: t, backend: h.backend, api: h.api, srv: h.srv, sid: planted}
	assert.Empty(t, other.token())
	body := readBody(t, other.get("/"))
	assert.NotContains(t, body, "kind=personal")
	assert.NotContains(t, body, "Welcome back!")
	assert.NotEqual(t, planted, other.sid)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.postForm("/login", url.Values{"email": {demo.DemoEmail}, "password": {"wrong"}})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password.")
	assert.Contains(t, body, demo.DemoEmail, "email is kept in the form")
	assert.Empty(t, h.token())
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.postForm("/login", url.Values{"email": {demo.DemoEmail}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, h.backend.Requests())
}

func TestLoginForm_RedirectsWhenLoggedIn(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)
	h.login()

	resp := h.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestSignup_ThenLogin(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.postForm("/signup", url.Values{
		"email":    {"new@example.com"},
		"nickname": {"newbie"},
		"password": {"secret123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Contains(t, readBody(t, h.get("/login")), "Account created")

	resp = h.postForm("/login", url.Values{"email": {"new@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.NotEmpty(t, h.token())
}

func TestSignup_DuplicateIsRejected(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.postForm("/signup", url.Values{
		"email":    {demo.DemoEmail},
		"nickname": {"someone"},
		"password": {"secret123"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, `value="someone"`)
}

func TestLogout_ClearsCredential(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Posts: 3, Seed: 1}, nil)
	h.login()
	h.get("/")
	require.Equal(t, 1, h.srv.feeds.Len())
	loggedIn := h.sid

	resp := h.postForm("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.NotEqual(t, loggedIn, h.sid)
	assert.Empty(t, h.token())
	assert.Zero(t, h.srv.feeds.Len(), "feed built with the old credential is dropped")
	assert.Contains(t, readBody(t, h.get("/")), "logged out")
}

func TestSelectFeed(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.login()
	h.get("/")

	body := readBody(t, h.fetch("/feed/select?kind=global"))
	assert.True(t, strings.HasPrefix(body, `<section id="feed">`), "fetch gets the partial only")
	assert.Contains(t, body, `class="active">Everyone`)
	assert.Contains(t, body, `id="post-12"`)

	full := readBody(t, h.get("/feed/select?kind=personal"))
	assert.Contains(t, full, "<html", "non-script request gets the whole page")
	assert.Contains(t, full, `class="active">Following`)

	resp := h.get("/feed/select?kind=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSelectFeed_PersonalRequiresLogin(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Posts: 3, Seed: 1}, nil)
	h.get("/")

	resp := h.fetch("/feed/select?kind=personal")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("X-Redirect"))

	resp = h.get("/feed/select?kind=personal")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestUnauthorizedBackend_ClearsCredential(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.login()
	h.get("/")

	h.backend.FailNext(http.MethodGet, "/posts", http.StatusUnauthorized)
	resp := h.fetch("/feed/select?kind=global")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("X-Redirect"))
	assert.Empty(t, h.token())

	assert.Contains(t, readBody(t, h.get("/login")), "session has expired")
}

func TestUnauthorizedBackend_FullPageRedirects(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.login()

	h.backend.FailNext(http.MethodGet, "/posts/feed", http.StatusUnauthorized)
	resp := h.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, h.token())
}

func TestCreatePost_RedirectsToLiveFeed(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 12, Seed: 1}, nil)
	h.login()
	h.get("/")

	resp := h.postMultipart("/posts", map[string]string{"content": "hello from the test"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/?posted="), loc)

	fetched := len(h.backend.Requests())
	body := readBody(t, h.get(loc))
	assert.Contains(t, body, "Post created.")
	first := strings.Index(body, `<article class="post"`)
	require.GreaterOrEqual(t, first, 0)
	assert.Contains(t, body[first:first+400], "hello from the test")
	assert.Len(t, h.backend.Requests(), fetched, "the live feed is rendered without refetching")

	h.get("/")
	assert.Greater(t, len(h.backend.Requests()), fetched, "a plain home load mounts a fresh feed")
}

func TestCreatePost_Validation(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.postMultipart("/posts", map[string]string{"content": "anonymous"})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	h.login()
	resp = h.postMultipart("/posts", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, readBody(t, h.get("/")), "Write something")
}

func TestPostPage(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)
	post := h.backend.AddPost(demo.DemoNickname, "a post worth discussing")
	require.Equal(t, uint(1), post.ID)

	anon := readBody(t, h.get("/posts/1"))
	assert.Contains(t, anon, "a post worth discussing")
	assert.Contains(t, anon, "to comment")
	assert.NotContains(t, anon, "/delete")

	h.login()
	resp := h.postForm("/posts/1/comments", url.Values{"content": {"first!"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/posts/1#comment-"))

	body := readBody(t, h.get("/posts/1"))
	assert.Contains(t, body, "first!")
	assert.Contains(t, body, "1 comment")
	assert.Contains(t, body, "/posts/1/delete", "owner sees post controls")
	assert.Contains(t, body, "/delete?post=1", "owner sees comment controls")
}

func TestPostPage_EditAndDelete(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)
	h.backend.AddPost(demo.DemoNickname, "draft")
	h.login()

	resp := h.postForm("/posts/1/edit", url.Values{"content": {"final"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	body := readBody(t, h.get("/posts/1"))
	assert.Contains(t, body, "Post updated.")
	assert.Contains(t, body, "final")

	resp = h.postForm("/posts/1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, http.StatusNotFound, h.get("/posts/1").StatusCode)
}

func TestPostPage_Errors(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Seed: 1}, nil)

	resp := h.get("/posts/999")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "not found")

	assert.Equal(t, http.StatusBadRequest, h.get("/posts/abc").StatusCode)
	assert.Equal(t, http.StatusNotFound, h.get("/no/such/page").StatusCode)
}

func TestProfile_FollowToggle(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 6, Seed: 1}, nil)
	h.login()
	nick := h.stranger()

	body := readBody(t, h.get("/profile/"+nick))
	assert.Contains(t, body, ">Follow</button>")

	resp := h.postForm("/profile/"+nick+"/follow", nil)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ">Unfollow</button>")
	assert.True(t, h.backend.Follows(demo.DemoNickname, nick))

	body = readBody(t, h.postForm("/profile/"+nick+"/follow", nil))
	assert.Contains(t, body, ">Follow</button>")
	assert.False(t, h.backend.Follows(demo.DemoNickname, nick))
}

func TestProfile_FollowFailureRollsBack(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 4, Posts: 6, Seed: 1}, nil)
	h.login()
	nick := h.stranger()

	h.backend.FailNext(http.MethodPost, "/profiles/", http.StatusInternalServerError)
	body := readBody(t, h.postForm("/profile/"+nick+"/follow", nil))
	assert.Contains(t, body, "Could not update follow status.")
	assert.Contains(t, body, ">Follow</button>")
	assert.False(t, h.backend.Follows(demo.DemoNickname, nick))
}

func TestProfile_OwnAndAnonymous(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 3, Seed: 1}, nil)
	nick := h.stranger()

	anon := readBody(t, h.get("/profile/"+nick))
	assert.Contains(t, anon, "@"+nick)
	assert.NotContains(t, anon, "follow-button", "anonymous visitors cannot follow")

	h.login()
	own := readBody(t, h.get("/profile/"+demo.DemoNickname))
	assert.NotContains(t, own, "follow-button", "no follow button on your own profile")

	assert.Equal(t, http.StatusNotFound, h.get("/profile/nobody-here").StatusCode)
	assert.Equal(t, http.StatusNotFound, h.postForm("/profile/nobody-here/follow", nil).StatusCode)
}

func TestExploreAndMyPage(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 3, Seed: 1}, nil)

	body := readBody(t, h.get("/explore"))
	assert.Contains(t, body, "@"+demo.DemoNickname)

	resp := h.get("/my-page")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	h.login()
	h.backend.AddPost(demo.DemoNickname, "mine")
	body = readBody(t, h.get("/my-page"))
	assert.Contains(t, body, demo.DemoEmail)
	assert.Contains(t, body, "mine")
}

func TestHealth(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 1, Seed: 1}, nil)

	assert.Equal(t, http.StatusOK, h.get("/health/live").StatusCode)

	resp := h.get("/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ready struct {
		Status       string            `json:"status"`
		Checks       map[string]string `json:"checks"`
		FeatureFlags map[string]string `json:"feature_flags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "memory", ready.Checks["sessions"])
	assert.Equal(t, "on", ready.FeatureFlags["follow_reconcile"])
	assert.Equal(t, "off", ready.FeatureFlags["markdown_posts"])
}

func TestRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, demo.Options{Users: 2, Posts: 3, Seed: 1}, rdb)
	h.login()
	assert.True(t, mr.Exists("session:"+h.sid+":accessToken"))

	resp := h.get("/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"sessions":"healthy"`)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, h.get("/health/ready").StatusCode)
}

func TestExpiredCredentialIsDropped(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 2, Posts: 3, Seed: 1}, nil)
	h.get("/")

	expired := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJleHAiOjF9.c2lnbmF0dXJl"
	require.NoError(t, h.srv.sessions.SaveToken(context.Background(), h.sid, expired))

	body := readBody(t, h.get("/"))
	assert.NotContains(t, body, "kind=personal")
	assert.Empty(t, h.token())
}

func TestAppErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, appErrorStatus(models.NewNotFoundError("Post", 1)))
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(models.NewValidationError("bad")))
	assert.Equal(t, http.StatusBadGateway, appErrorStatus(models.NewUpstreamError("down", nil)))
	assert.Equal(t, http.StatusInternalServerError, appErrorStatus(models.NewInternalError(nil)))
}

func TestErrors_JSONWhenPreferred(t *testing.T) {
	h := newHarness(t, demo.Options{Users: 1, Seed: 1}, nil)

	req := httptest.NewRequest(http.MethodGet, "/posts/999", nil)
	req.Header.Set("Accept", "application/json")
	resp := h.send(req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "Post 999 not found", body.Error)
}
