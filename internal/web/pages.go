package web

import (
	"html/template"

	"vibeweb/internal/models"
	"vibeweb/internal/session"
)

// Page is embedded in every full page.
type Page struct {
	Title    string
	LoggedIn bool
	Flashes  []session.Flash
}

// PostView is a post prepared for display.
type PostView struct {
	models.Post
	Body  template.HTML
	Owned bool
}

// FeedData is the feed partial: tabs, posts and the pagination sentinel.
type FeedData struct {
	Kind models.FeedKind
	// Posts are the posts to render: the whole feed, or only the newly
	// appended page for a pagination partial.
	Posts     []PostView
	Total     int
	HasMore   bool
	Error     string
	LoggedIn  bool
	Threshold float64
}

// Personal reports whether the personal tab is active.
func (f FeedData) Personal() bool {
	return f.Kind == models.FeedPersonal
}

// HomePageData is the home page.
type HomePageData struct {
	Page
	Feed FeedData
}

// CommentView is a comment prepared for display.
type CommentView struct {
	models.Comment
	Owned bool
}

// PostPageData is the post detail page.
type PostPageData struct {
	Page
	Post     PostView
	Comments []CommentView
}

// ProfilePostView is a profile's post prepared for display.
type ProfilePostView struct {
	models.ProfilePost
	Body template.HTML
}

// ProfilePageData is a profile page.
type ProfilePageData struct {
	Page
	Profile   models.Profile
	Posts     []ProfilePostView
	Own       bool
	CanFollow bool
}

// ExplorePageData lists users.
type ExplorePageData struct {
	Page
	Users []models.User
}

// MyPageData is the signed-in user's own page.
type MyPageData struct {
	Page
	User    models.User
	Profile *models.Profile
	Posts   []ProfilePostView
}

// FormPageData backs the login and signup forms.
type FormPageData struct {
	Page
	Email    string
	Nickname string
	Error    string
}

// ErrorPageData is the error page.
type ErrorPageData struct {
	Page
	Status  int
	Message string
}
