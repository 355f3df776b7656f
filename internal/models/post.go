// Package models contains the data structures exchanged with the social backend.
package models

import "time"

// Author is the embedded author reference on posts and comments.
type Author struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
}

// Post is a single feed entry. Content and ImageURL are both optional, but the
// backend never returns a post with neither.
type Post struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	AuthorID  uint      `json:"authorId"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasImage reports whether the post carries an image reference.
func (p Post) HasImage() bool {
	return p.ImageURL != ""
}

// OwnedBy reports whether the given user authored the post.
func (p Post) OwnedBy(userID uint) bool {
	if userID == 0 {
		return false
	}
	if p.AuthorID != 0 {
		return p.AuthorID == userID
	}
	return p.Author.ID == userID
}

// FeedKind selects which backend collection a feed reads from.
type FeedKind string

const (
	// FeedPersonal is the session-scoped feed of followed authors plus own posts.
	FeedPersonal FeedKind = "personal"
	// FeedGlobal is the public feed of all posts.
	FeedGlobal FeedKind = "global"
)

// ParseFeedKind converts a query value into a FeedKind.
func ParseFeedKind(raw string) (FeedKind, bool) {
	switch FeedKind(raw) {
	case FeedPersonal:
		return FeedPersonal, true
	case FeedGlobal:
		return FeedGlobal, true
	}
	return "", false
}

// ImageUpload is an optional file attached to a new post. The bytes are
// forwarded to the backend untouched.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
