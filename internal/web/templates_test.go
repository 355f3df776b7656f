package web

import (
	"bytes"
	"testing"
	"time"

	"vibeweb/internal/models"
	"vibeweb/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	tmpl, err := NewTemplates()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tmpl.Render(&buf, name, data))
	return buf.String()
}

func TestRender_UnknownTemplate(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)
	assert.Error(t, tmpl.Render(&bytes.Buffer{}, "nope", nil))
}

func TestHome_SentinelAndTabs(t *testing.T) {
	out := render(t, "home", HomePageData{
		Page: Page{LoggedIn: true, Flashes: []session.Flash{{Kind: session.FlashSuccess, Message: "Post created"}}},
		Feed: FeedData{
			Kind:      models.FeedPersonal,
			Posts:     []PostView{{Post: models.Post{ID: 7, Author: models.Author{Nickname: "jin"}}, Body: "<p>hi</p>"}},
			Total:     1,
			HasMore:   true,
			LoggedIn:  true,
			Threshold: 0.5,
		},
	})

	assert.Contains(t, out, `id="feed-sentinel" data-threshold="0.5"`)
	assert.Contains(t, out, `href="/feed/select?kind=personal" class="active"`)
	assert.Contains(t, out, `<p>hi</p>`)
	assert.Contains(t, out, `toast-success`)
	assert.Contains(t, out, `action="/posts"`)
}

func TestFeedPage_EndStates(t *testing.T) {
	out := render(t, "feed-page", FeedData{Total: 8})
	assert.Contains(t, out, "caught up")
	assert.NotContains(t, out, "feed-sentinel")

	out = render(t, "feed-page", FeedData{})
	assert.Contains(t, out, "No posts yet.")

	out = render(t, "feed-page", FeedData{Error: "Could not load more posts."})
	assert.Contains(t, out, "Could not load more posts.")
}

func TestPostCard_EscapesAuthor(t *testing.T) {
	out := render(t, "post-card", PostView{Post: models.Post{
		ID:        1,
		Content:   "x",
		ImageURL:  "http://img/1.png",
		Author:    models.Author{Nickname: "<b>"},
		CreatedAt: time.Now(),
	}, Body: "x"})

	assert.Contains(t, out, "@&lt;b&gt;")
	assert.Contains(t, out, `src="http://img/1.png"`)
	assert.Contains(t, out, "just now")
}

func TestProfileLinks_EscapeNickname(t *testing.T) {
	nick := "a/b c?x"
	want := `/profile/a%2Fb%20c%3Fx`

	out := render(t, "post-card", PostView{Post: models.Post{ID: 1, Author: models.Author{Nickname: nick}}})
	assert.Contains(t, out, `href="`+want+`"`)

	out = render(t, "explore", ExplorePageData{Users: []models.User{{ID: 2, Nickname: nick}}})
	assert.Contains(t, out, `href="`+want+`"`)

	out = render(t, "post", PostPageData{
		Post:     PostView{Post: models.Post{ID: 3}},
		Comments: []CommentView{{Comment: models.Comment{ID: 4, Author: models.User{Nickname: nick}}}},
	})
	assert.Contains(t, out, `href="`+want+`"`)

	out = render(t, "profile", ProfilePageData{Page: Page{LoggedIn: true}, Profile: models.Profile{Nickname: nick}, CanFollow: true})
	assert.Contains(t, out, `action="`+want+`/follow"`)
}

func TestProfile_FollowButton(t *testing.T) {
	bio := "hello there"
	out := render(t, "profile", ProfilePageData{
		Page:      Page{LoggedIn: true},
		Profile:   models.Profile{Nickname: "jin", Bio: &bio, Counts: models.ProfileCounts{Followers: 1}, IsFollowing: true},
		CanFollow: true,
	})
	assert.Contains(t, out, "Unfollow")
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, "1</strong> follower ")

	out = render(t, "profile", ProfilePageData{Profile: models.Profile{Nickname: "jin"}, Own: true})
	assert.NotContains(t, out, "follow-button")
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "", timeAgo(time.Time{}))
	assert.Equal(t, "5m ago", timeAgo(now.Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3h ago", timeAgo(now.Add(-3*time.Hour-time.Second)))
	assert.Equal(t, "2d ago", timeAgo(now.Add(-49*time.Hour)))
	old := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mar 4, 2020", timeAgo(old))
}
